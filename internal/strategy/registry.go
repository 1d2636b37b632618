package strategy

import (
	"github.com/harrison/agentcore/internal/agentcore"
	"github.com/harrison/agentcore/internal/llm"
)

// Dependencies bundles the collaborators BuildDefaultRegistry needs to
// wire every built-in kind. Fields left nil disable the kinds that need
// them (REMOTE_TOOL_CALL, REMOTE_SERVER_ADMIN, AI_ANALYSIS, CODE_GENERATION,
// DECISION) so a caller can build a minimal registry for tests.
type Dependencies struct {
	Narrator Narrator
	Model    llm.LanguageModel
	Auth     llm.Auth
	Caller   ToolCaller
	Admin    ServerAdmin
	Health   HealthChecker
}

// BuildDefaultRegistry constructs a Registry with every built-in kind
// bound to its strategy, matching spec.md §4.3's representative kinds.
func BuildDefaultRegistry(deps Dependencies) *Registry {
	r := NewRegistry()

	files := NewFileStrategy(deps.Narrator)
	r.Register(agentcore.KindFileRead, StrategyFunc(files.ExecuteRead))
	r.Register(agentcore.KindFileWrite, StrategyFunc(files.ExecuteWrite))
	r.Register(agentcore.KindFileCopy, StrategyFunc(files.ExecuteCopy))
	r.Register(agentcore.KindFileDelete, StrategyFunc(files.ExecuteDelete))
	r.Register(agentcore.KindDirectoryScan, StrategyFunc(files.ExecuteDirectoryScan))

	r.Register(agentcore.KindShellCommand, NewShellStrategy(deps.Narrator))
	r.Register(agentcore.KindScriptExecution, NewScriptStrategy(deps.Narrator))
	r.Register(agentcore.KindBackgroundProcess, NewBackgroundStrategy(deps.Narrator))
	r.Register(agentcore.KindLogAnalysis, NewLogAnalysisStrategy(deps.Narrator))

	custom := NewCustomStrategy(deps.Narrator)
	r.Register(agentcore.KindCustom, custom)

	r.Register(agentcore.KindComposite, NewCompositeStrategy(r, deps.Narrator))

	if deps.Model != nil {
		r.Register(agentcore.KindAIAnalysis, NewAIStrategy(deps.Model, deps.Auth, deps.Narrator))
		r.Register(agentcore.KindTextProcessing, NewAIStrategy(deps.Model, deps.Auth, deps.Narrator))
		r.Register(agentcore.KindCodeGeneration, NewCodeGenStrategy(deps.Model, deps.Narrator))
		r.Register(agentcore.KindDecision, NewDecisionStrategy(deps.Model, deps.Narrator))
	}

	if deps.Caller != nil {
		r.Register(agentcore.KindRemoteToolCall, NewRemoteToolStrategy(deps.Caller, deps.Narrator))
		r.Register(agentcore.KindRemoteResourceAccess, NewRemoteToolStrategy(deps.Caller, deps.Narrator))
	}

	if deps.Admin != nil {
		r.Register(agentcore.KindRemoteServerAdmin, NewRemoteAdminStrategy(deps.Admin, deps.Narrator))
	}

	system := NewSystemStrategy(deps.Auth, deps.Health, deps.Narrator)
	r.Register(agentcore.KindSystem, system)
	r.Register(agentcore.KindSystemMonitoring, system)
	r.Register(agentcore.KindHealthCheck, system)

	return r
}
