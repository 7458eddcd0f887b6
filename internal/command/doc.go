// Package command aggregates slash commands from independently failing
// loaders into immutable, atomically published snapshots, and resolves
// raw shell input against the current snapshot's command tree.
package command
