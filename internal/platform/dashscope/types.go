package dashscope

// Request and response bodies of the DashScope video synthesis API.

type submitInput struct {
	Prompt         string `json:"prompt"`
	NegativePrompt string `json:"negative_prompt,omitempty"`
}

type submitParameters struct {
	Size         string `json:"size"`
	Duration     int    `json:"duration"`
	PromptExtend bool   `json:"prompt_extend"`
	Watermark    bool   `json:"watermark"`
}

type submitBody struct {
	Model      string           `json:"model"`
	Input      submitInput      `json:"input"`
	Parameters submitParameters `json:"parameters"`
}

type taskOutput struct {
	TaskID     string `json:"task_id"`
	TaskStatus string `json:"task_status"`
	VideoURL   string `json:"video_url,omitempty"`
	Code       string `json:"code,omitempty"`
	Message    string `json:"message,omitempty"`
}

type apiResponse struct {
	RequestID string     `json:"request_id"`
	Output    taskOutput `json:"output"`
	Code      string     `json:"code,omitempty"`
	Message   string     `json:"message,omitempty"`
}
