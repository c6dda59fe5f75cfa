// Package domain содержит модели prompt library: Prompt, PromptVersion,
// VariableDefinition, Workflow, WorkflowStep, WorkflowRun и типы событий.
package domain
