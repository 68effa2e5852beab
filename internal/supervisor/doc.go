// Snipcheck - Snippet Lint and Format Orchestration
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/snipcheck

/*
Package supervisor runs the long-lived parts of snipcheck under a suture
supervisor tree.

The tree has two layers so a crash loop in one does not take down the other:

	snipcheck (root)
	├── messaging-layer   result consumer
	└── api-layer         HTTP server

Each child inherits the root's failure threshold, decay and backoff. Events
(service panics, restarts, backoff) are logged through sutureslog.

Usage:

	tree, err := supervisor.NewSupervisorTree(logger, supervisor.DefaultTreeConfig())
	tree.Add(supervisor.LayerMessaging, services.NewConsumerService(consumer))
	tree.Add(supervisor.LayerAPI, services.NewHTTPServerService(server, 10*time.Second))
	err = <-tree.ServeBackground(ctx)

Concrete service wrappers live in the services subpackage.
*/
package supervisor
