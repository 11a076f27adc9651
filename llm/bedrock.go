package llm

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/aws/aws-sdk-go-v2/aws"
	awsconfig "github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/credentials"
	"github.com/aws/aws-sdk-go-v2/service/bedrockruntime"
)

// BedrockProvider dispatches generation calls through AWS Bedrock's
// InvokeModel API using the Anthropic Claude message format, serving
// the silver/gold/platinum tiers (spec.md §2 C2; SPEC_FULL.md §3).
type BedrockProvider struct {
	client *bedrockruntime.Client
}

// NewBedrockProvider loads the default AWS config chain (environment,
// shared config, IAM role) and constructs a client, matching the
// teacher's ai/providers/bedrock wiring.
func NewBedrockProvider(ctx context.Context) (*BedrockProvider, error) {
	cfg, err := awsconfig.LoadDefaultConfig(ctx)
	if err != nil {
		return nil, fmt.Errorf("load aws config: %w", err)
	}
	return &BedrockProvider{client: bedrockruntime.NewFromConfig(cfg)}, nil
}

// NewBedrockProviderWithStaticCredentials is used by deployments that
// inject a long-lived access key/secret pair (e.g. a shared CI
// account) rather than relying on the ambient credential chain.
func NewBedrockProviderWithStaticCredentials(ctx context.Context, region, accessKeyID, secretAccessKey string) (*BedrockProvider, error) {
	cfg, err := awsconfig.LoadDefaultConfig(ctx,
		awsconfig.WithRegion(region),
		awsconfig.WithCredentialsProvider(credentials.NewStaticCredentialsProvider(accessKeyID, secretAccessKey, "")),
	)
	if err != nil {
		return nil, fmt.Errorf("load aws config with static credentials: %w", err)
	}
	return &BedrockProvider{client: bedrockruntime.NewFromConfig(cfg)}, nil
}

type claudeRequest struct {
	AnthropicVersion string          `json:"anthropic_version"`
	MaxTokens        int             `json:"max_tokens"`
	System           string          `json:"system,omitempty"`
	Messages         []claudeMessage `json:"messages"`
	Temperature      float32         `json:"temperature,omitempty"`
}

type claudeMessage struct {
	Role    string `json:"role"`
	Content string `json:"content"`
}

type claudeResponse struct {
	Content []struct {
		Text string `json:"text"`
	} `json:"content"`
	Usage struct {
		InputTokens  int `json:"input_tokens"`
		OutputTokens int `json:"output_tokens"`
	} `json:"usage"`
}

func (p *BedrockProvider) GenerateResponse(ctx context.Context, systemPrompt, userPrompt string, options *ProviderOptions) (Response, error) {
	model := "anthropic.claude-3-sonnet-20240229-v1:0"
	maxTokens := 1024
	var temperature float32 = 0.3
	if options != nil {
		if options.Model != "" {
			model = options.Model
		}
		if options.MaxTokens > 0 {
			maxTokens = options.MaxTokens
		}
		if options.Temperature > 0 {
			temperature = options.Temperature
		}
	}

	body, err := json.Marshal(claudeRequest{
		AnthropicVersion: "bedrock-2023-05-31",
		MaxTokens:        maxTokens,
		System:           systemPrompt,
		Temperature:      temperature,
		Messages:         []claudeMessage{{Role: "user", Content: userPrompt}},
	})
	if err != nil {
		return Response{}, fmt.Errorf("encode bedrock request: %w", err)
	}

	out, err := p.client.InvokeModel(ctx, &bedrockruntime.InvokeModelInput{
		ModelId:     aws.String(model),
		ContentType: aws.String("application/json"),
		Accept:      aws.String("application/json"),
		Body:        body,
	})
	if err != nil {
		return Response{}, fmt.Errorf("bedrock invoke model %s: %w", model, err)
	}

	var parsed claudeResponse
	if err := json.Unmarshal(out.Body, &parsed); err != nil {
		return Response{}, fmt.Errorf("decode bedrock response: %w", err)
	}

	var content string
	if len(parsed.Content) > 0 {
		content = parsed.Content[0].Text
	}

	return Response{
		Content: content,
		Model:   model,
		Usage: TokenUsage{
			PromptTokens:     parsed.Usage.InputTokens,
			CompletionTokens: parsed.Usage.OutputTokens,
			TotalTokens:      parsed.Usage.InputTokens + parsed.Usage.OutputTokens,
		},
	}, nil
}

var _ Provider = (*BedrockProvider)(nil)
