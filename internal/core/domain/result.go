package domain

// CommandResult is the outcome of one external process invocation.
type CommandResult struct {
	Success    bool   `json:"success"`
	ReturnCode int    `json:"returncode"`
	Stdout     string `json:"stdout"`
	Stderr     string `json:"stderr"`
	Error      string `json:"error,omitempty"`
}

// Failure returns the most useful failure text of a result.
func (r CommandResult) Failure() string {
	if r.Error != "" {
		return r.Error
	}
	if r.Stderr != "" {
		return r.Stderr
	}
	return r.Stdout
}

// BuildResult is returned by an image build.
type BuildResult struct {
	ImageName string `json:"image_name"`
	Output    string `json:"build_output"`
}

// PushResult is returned by a registry push.
type PushResult struct {
	URI            string `json:"ecr_uri"`
	RepositoryName string `json:"repository_name"`
	Message        string `json:"message"`
}

// RegistryAuth carries credentials for a registry login/push.
type RegistryAuth struct {
	Username      string
	Password      string
	ServerAddress string
}

// ContainerizationResult is reported after a successful containerize pass.
type ContainerizationResult struct {
	ImageName        string           `json:"image_name"`
	ContainerName    string           `json:"container_name"`
	ContainerID      string           `json:"container_id"`
	Port             int              `json:"port,omitempty"`
	URL              string           `json:"url,omitempty"`
	RunCommand       []string         `json:"run_command,omitempty"`
	RunCommandSource string           `json:"run_command_source"`
	DockerfilePath   string           `json:"dockerfile_path"`
	BuildOutput      string           `json:"build_output,omitempty"`
	AIAnalysis       string           `json:"ai_analysis"`
	Analysis         *ProjectAnalysis `json:"analysis,omitempty"`
	Push             *PushResult      `json:"push,omitempty"`
}

// ComposeResult is reported after a compose rebuild.
type ComposeResult struct {
	ComposePath string   `json:"compose_path"`
	Services    []string `json:"services"`
	BuildOutput string   `json:"build_output,omitempty"`
}

// S2IResult is reported after a source-to-image build.
type S2IResult struct {
	Image        string `json:"image"`
	BuilderImage string `json:"builder_image"`
	Output       string `json:"output,omitempty"`
	ContainerID  string `json:"container_id,omitempty"`
	Port         int    `json:"port"`
	RunError     string `json:"run_error,omitempty"`
}
