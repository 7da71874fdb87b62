/*
Package statecraft is a small hierarchical actor/state-machine runtime and the set of demo machines built on it.

Machines are declared as data: a table of states with typed context, event transitions, delayed ("after") transitions and guard-conditional ("always") transitions. Instances process one event at a time to completion, and a parent instance can spawn supervised children that report their own termination back to it.

# Machines

  - form: collaborative form fields with per-field edit history and revert.
  - network: a simulated connection that takes a configurable delay to connect.
  - syncing: documents synced one by one while online.
  - navigation: a fixed list of slides, with a path codec.
  - toasts: a notification manager whose children hide themselves after a timeout.

# Usage

A System owns one instance of each machine. It restores persisted snapshots, runs the optional simulators and notifies listeners of changes.

	sys := statecraft.New(
		statecraft.WithStore(memory.NewStore()),
		statecraft.WithSimulation(true, true, simulate.Options{}),
	)
	sys.Start(ctx)
	defer sys.Close()

	snap, err := sys.Send(ctx, statecraft.MachineNetwork, network.Connect())
	if err != nil {
		log.Fatal(err)
	}
	fmt.Println(snap.State) // connecting

Outer surfaces (HTTP, MCP, the terminal board) live under internal/adapters and internal/presentation and are wired by cmd/statecraft.
*/
package statecraft
