package dto

// StartVideoDTO asks the producer to start tracking a joint
type StartVideoDTO struct {
	Joint string `json:"joint"`
}

// StatusResponse is the {"status", "message"} envelope used by the command and error paths
type StatusResponse struct {
	Status  string `json:"status"`
	Message string `json:"message,omitempty"`
}

func Success() StatusResponse {
	return StatusResponse{Status: "success"}
}

func Error(message string) StatusResponse {
	return StatusResponse{Status: "error", Message: message}
}

type AngleResponse struct {
	Angle float64 `json:"angle"`
}

type HealthResponse struct {
	Status            string `json:"status"`
	ProducerConnected bool   `json:"producer_connected"`
	ListenerState     string `json:"listener_state"`
	Database          string `json:"database"`
}
