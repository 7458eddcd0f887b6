// Package extension manages the on-disk extension store: acquisition of
// extension content from local paths, git repositories, and release
// archives, and the install/update/enable/disable/uninstall lifecycle
// over it. The lifecycle manager is the only writer of the store; every
// state change triggers a command refresh so the aggregated command
// surface stays current.
package extension
