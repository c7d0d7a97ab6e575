//go:build js

package loader

// defaultExecutionContext is the context used when the configuration names none.
const defaultExecutionContext = ExecutionSandboxed
