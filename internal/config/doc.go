// Package config loads application configuration from the user's
// ~/.slashkit directory and SLASHKIT_* environment variables.
package config
