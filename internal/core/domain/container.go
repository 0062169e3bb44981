package domain

// Container is a handle to a container known to the runtime.
type Container struct {
	ID    string `json:"id"`
	Name  string `json:"name"`
	Image string `json:"image"`
	State string `json:"state"` // running, exited, etc.
}

// Image is a handle to an image known to the runtime.
type Image struct {
	ID   string   `json:"id"`
	Tags []string `json:"tags,omitempty"`
}

// Stream identifies which output stream a chunk of exec output came from.
type Stream string

const (
	Stdout Stream = "stdout"
	Stderr Stream = "stderr"
)

// OutputFunc receives exec output incrementally, one chunk at a time.
type OutputFunc func(stream Stream, chunk []byte)

// LoginCommand describes how to launch an interactive shell in a container.
type LoginCommand struct {
	Command   string   `json:"command"`
	Arguments []string `json:"arguments"`
}
