package assess

// Stage is a pair's position in the assessment pipeline.
type Stage int

const (
	StagePending Stage = iota
	StageEvidenceGathered
	StagePromptBuilt
	StageLLMResponded
	StageParsed
	StageDone
)

var stageNames = [...]string{
	StagePending:          "pending",
	StageEvidenceGathered: "evidence_gathered",
	StagePromptBuilt:      "prompt_built",
	StageLLMResponded:     "llm_responded",
	StageParsed:           "parsed",
	StageDone:             "done",
}

func (s Stage) String() string {
	if s < 0 || int(s) >= len(stageNames) {
		return "unknown"
	}
	return stageNames[s]
}
