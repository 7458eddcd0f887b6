// Package manifest parses and validates extension.yaml manifests.
package manifest
