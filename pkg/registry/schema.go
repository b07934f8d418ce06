package registry

// TaskCatalog declares every task the onboarding module can dispatch.
type TaskCatalog struct {
	Version     string `json:"version"`
	LastUpdated string `json:"lastUpdated"`
	Tasks       []Task `json:"tasks"`
}

type Task struct {
	Name        string                 `json:"name"`
	EntityType  string                 `json:"entityType"`
	Description string                 `json:"description"`
	Queue       string                 `json:"queue,omitempty"`
	InputSchema map[string]interface{} `json:"inputSchema"`
	ErrorCodes  []string               `json:"errorCodes"`
	Timeout     string                 `json:"timeout"`
	Retries     int                    `json:"retries"`
	Tags        []string               `json:"tags,omitempty"`
}
