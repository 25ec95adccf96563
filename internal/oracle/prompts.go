// Package oracle builds the prompts sent to the inference service and parses
// its free-form replies into analyses, Dockerfiles and run commands.
package oracle

import (
	"fmt"
	"strings"

	"github.com/lithammer/dedent"
)

func render(format string, args ...any) string {
	return strings.TrimSpace(fmt.Sprintf(dedent.Dedent(format), args...)) + "\n"
}

func AnalysisPrompt(repoName, projectInfo string) string {
	return render(`
		Analyze this repository and provide a detailed summary:

		Repository: %s
		Project Structure:
		%s

		Please provide analysis in JSON format with:
		{
		    "project_type": "detected framework/language",
		    "main_files": ["list of important files"],
		    "dependencies": ["detected dependencies"],
		    "recommended_port": 8080,
		    "build_instructions": "how to build this project",
		    "runtime_requirements": "what's needed to run this"
		}
	`, repoName, projectInfo)
}

// RepairPrompt asks the model to restructure a free-text analysis as JSON.
func RepairPrompt(raw string) string {
	return render(`
		Restructure the following repository analysis into a single JSON object
		with the keys project_type, main_files, dependencies, recommended_port,
		build_instructions and runtime_requirements. recommended_port must be a
		number. Return only the JSON object, no prose and no markdown.

		%s
	`, raw)
}

func DockerfilePrompt(repoName, analysis, projectInfo string) string {
	return render(`
		Write a production ready Dockerfile for the repository %s.

		Analysis:
		%s

		Project Structure:
		%s

		Requirements:
		- use an official, maintained base image
		- copy the source into /app and install dependencies
		- EXPOSE the port the application listens on
		- end with a CMD or ENTRYPOINT that starts the application

		Return only the Dockerfile content inside a single dockerfile code block.
	`, repoName, analysis, projectInfo)
}

func RunCommandPrompt(dockerfile string) string {
	return render(`
		Based on this Dockerfile, provide the exact docker run command that starts
		the container in the background and publishes its port:

		%s

		Reply with exactly one line of the form
		docker run -d -p <host_port>:<container_port> <image_name>
		The image name must be the last token. Do not add any explanation.
	`, dockerfile)
}

func DeprecatedImagePrompt(dockerfile string) string {
	return render(`
		Check this Dockerfile for deprecated or end-of-life base images and
		outdated instructions:

		%s

		If everything is current, return the Dockerfile unchanged. Otherwise
		return the corrected Dockerfile. Return only the Dockerfile content
		inside a single dockerfile code block.
	`, dockerfile)
}

func ComposePrompt(repoName, analysis, projectInfo string) string {
	return render(`
		Write a docker-compose.yml for the repository %s. The application service
		must build from the Dockerfile in the project root. Add backing services
		(databases, caches, queues) only when the analysis shows the application
		needs them.

		Analysis:
		%s

		Project Structure:
		%s

		Return only the YAML inside a single yaml code block.
	`, repoName, analysis, projectInfo)
}
