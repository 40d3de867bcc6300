package config

type WorkerKeyStruct struct {
	PersistAnswersQueue     string
	PersistViolationsQueue  string
	PersistCompletionsQueue string
	PersistOrderQueue       string
}

var WorkerKey = &WorkerKeyStruct{
	PersistAnswersQueue:     "persist_answers_queue",
	PersistViolationsQueue:  "persist_violations_queue",
	PersistCompletionsQueue: "persist_completions_queue",
	PersistOrderQueue:       "persist_order_queue",
}
