package bedrock

import (
	"context"
	"fmt"
	"strings"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/service/bedrockruntime"
	"github.com/aws/aws-sdk-go-v2/service/bedrockruntime/types"
)

// Invoker is the narrow surface this package needs from the generative model:
// one prompt in, the model's free-text answer out.
type Invoker interface {
	Invoke(ctx context.Context, prompt string) (string, error)
}

// RuntimeInvoker implements Invoker over the Bedrock Runtime Converse API.
type RuntimeInvoker struct {
	client  *bedrockruntime.Client
	modelID string
}

func NewRuntimeInvoker(awsCfg aws.Config, modelID string) *RuntimeInvoker {
	return &RuntimeInvoker{
		client:  bedrockruntime.NewFromConfig(awsCfg),
		modelID: modelID,
	}
}

func (i *RuntimeInvoker) Invoke(ctx context.Context, prompt string) (string, error) {
	out, err := i.client.Converse(ctx, &bedrockruntime.ConverseInput{
		ModelId: aws.String(i.modelID),
		Messages: []types.Message{
			{
				Role:    types.ConversationRoleUser,
				Content: []types.ContentBlock{&types.ContentBlockMemberText{Value: prompt}},
			},
		},
	})
	if err != nil {
		return "", fmt.Errorf("bedrock converse failed: %w", err)
	}

	message, ok := out.Output.(*types.ConverseOutputMemberMessage)
	if !ok {
		return "", fmt.Errorf("bedrock returned unexpected output type %T", out.Output)
	}

	var text strings.Builder
	for _, block := range message.Value.Content {
		if textBlock, ok := block.(*types.ContentBlockMemberText); ok {
			text.WriteString(textBlock.Value)
		}
	}
	return text.String(), nil
}
