package inference

import (
	"context"
	"fmt"

	"github.com/Azure/azure-sdk-for-go/sdk/ai/azopenai"
	"github.com/Azure/azure-sdk-for-go/sdk/azcore"
	"github.com/Azure/azure-sdk-for-go/sdk/azcore/to"

	"github.com/melih/lighthouse-forge/internal/config"
)

// AzureClient calls a chat deployment of Azure OpenAI.
type AzureClient struct {
	client       *azopenai.Client
	deploymentID string
	maxTokens    int32
	temperature  float32
}

// NewAzureClient uses cfg.Deployment, falling back to cfg.Model, as the
// deployment name for every call.
func NewAzureClient(cfg config.InferenceConfig) (*AzureClient, error) {
	keyCredential := azcore.NewKeyCredential(cfg.APIKey)
	client, err := azopenai.NewClientWithKeyCredential(cfg.Endpoint, keyCredential, nil)
	if err != nil {
		return nil, fmt.Errorf("error creating Azure OpenAI client: %w", err)
	}
	deployment := cfg.Deployment
	if deployment == "" {
		deployment = cfg.Model
	}
	return &AzureClient{
		client:       client,
		deploymentID: deployment,
		maxTokens:    int32(cfg.MaxTokens),
		temperature:  float32(cfg.Temperature),
	}, nil
}

func (c *AzureClient) Model() string { return c.deploymentID }

func (c *AzureClient) Complete(ctx context.Context, prompt string) (string, error) {
	opts := azopenai.ChatCompletionsOptions{
		DeploymentName: to.Ptr(c.deploymentID),
		Messages: []azopenai.ChatRequestMessageClassification{
			&azopenai.ChatRequestUserMessage{
				Content: azopenai.NewChatRequestUserMessageContent(prompt),
			},
		},
		Temperature: to.Ptr(c.temperature),
	}
	if c.maxTokens > 0 {
		opts.MaxTokens = to.Ptr(c.maxTokens)
	}

	resp, err := c.client.GetChatCompletions(ctx, opts, nil)
	if err != nil {
		return "", fmt.Errorf("azure openai: %w", err)
	}
	if len(resp.Choices) > 0 && resp.Choices[0].Message != nil && resp.Choices[0].Message.Content != nil {
		return *resp.Choices[0].Message.Content, nil
	}
	return "", errEmptyCompletion
}
