package inference

import (
	"context"
	"fmt"
	"strings"

	"github.com/aws/aws-sdk-go-v2/aws"
	awsconfig "github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/service/bedrockruntime"
	"github.com/aws/aws-sdk-go-v2/service/bedrockruntime/types"

	"github.com/melih/lighthouse-forge/internal/config"
)

type converseAPI interface {
	Converse(ctx context.Context, params *bedrockruntime.ConverseInput, optFns ...func(*bedrockruntime.Options)) (*bedrockruntime.ConverseOutput, error)
}

// BedrockClient calls the Bedrock Converse API with a single user message.
type BedrockClient struct {
	api         converseAPI
	model       string
	maxTokens   int32
	temperature float32
}

// NewBedrockClient resolves AWS credentials from the default chain.
func NewBedrockClient(ctx context.Context, cfg config.InferenceConfig) (*BedrockClient, error) {
	awsCfg, err := awsconfig.LoadDefaultConfig(ctx, awsconfig.WithRegion(cfg.Region))
	if err != nil {
		return nil, fmt.Errorf("error loading AWS config: %w", err)
	}
	return &BedrockClient{
		api:         bedrockruntime.NewFromConfig(awsCfg),
		model:       cfg.Model,
		maxTokens:   int32(cfg.MaxTokens),
		temperature: float32(cfg.Temperature),
	}, nil
}

func (c *BedrockClient) Model() string { return c.model }

func (c *BedrockClient) Complete(ctx context.Context, prompt string) (string, error) {
	in := &bedrockruntime.ConverseInput{
		ModelId: aws.String(c.model),
		Messages: []types.Message{{
			Role:    types.ConversationRoleUser,
			Content: []types.ContentBlock{&types.ContentBlockMemberText{Value: prompt}},
		}},
		InferenceConfig: &types.InferenceConfiguration{
			Temperature: aws.Float32(c.temperature),
		},
	}
	if c.maxTokens > 0 {
		in.InferenceConfig.MaxTokens = aws.Int32(c.maxTokens)
	}

	out, err := c.api.Converse(ctx, in)
	if err != nil {
		return "", fmt.Errorf("bedrock converse: %w", err)
	}

	msg, ok := out.Output.(*types.ConverseOutputMemberMessage)
	if !ok {
		return "", errEmptyCompletion
	}
	var sb strings.Builder
	for _, block := range msg.Value.Content {
		if text, ok := block.(*types.ContentBlockMemberText); ok {
			sb.WriteString(text.Value)
		}
	}
	if sb.Len() == 0 {
		return "", errEmptyCompletion
	}
	return sb.String(), nil
}
