package observability

const (
	AttrAgentName       = "agent.name"
	AttrStudentID       = "student.id"
	AttrSessionID       = "session.id"
	AttrIntent          = "intent"
	AttrLLMModel        = "llm.model"
	AttrLLMTokensInput  = "llm.tokens.input"
	AttrLLMTokensOutput = "llm.tokens.output"
	AttrRetrievalSource = "retrieval.source"
	AttrErrorType       = "error.type"
	AttrHTTPMethod      = "http.method"
	AttrHTTPPath        = "http.path"
	AttrHTTPStatusCode  = "http.status_code"

	SpanAgentCall   = "agent.call"
	SpanLLMRequest  = "agent.llm_request"
	SpanRetrieval   = "agent.knowledge_retrieval"
	SpanRouting     = "orchestrator.route"
	SpanHTTPRequest = "http.request"
)
