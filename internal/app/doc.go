// Package app contains the core application logic. It wires the workflow
// loader, blueprint expander and variable manager into the load pipeline,
// decoupled from any specific entrypoint like a CLI.
package app
