package llm

import (
	"encoding/json"
	"fmt"
	"io"
	"strings"

	"context"

	anthropic "github.com/anthropics/anthropic-sdk-go"
	"github.com/anthropics/anthropic-sdk-go/option"
	"github.com/lokutor-ai/lokutor-orchestrator/pkg/orchestrator"
)

// AnthropicStreamLLM is the real-time LLMStreamProvider backing, using the
// official Anthropic SDK's streaming Messages API with tool-call support.
// Grounded on the event-switch shape of the Bedrock SDK streaming client in
// the retrieval pack (pkg/llm/bedrock/client_sdk.go ChatStream), generalized
// from a single-callback token stream to the tagged-union LLMEvent protocol.
type AnthropicStreamLLM struct {
	client    anthropic.Client
	model     string
	maxTokens int64
}

func NewAnthropicStreamLLM(apiKey, model string) *AnthropicStreamLLM {
	if model == "" {
		model = "claude-3-5-sonnet-20240620"
	}
	var opts []option.RequestOption
	if apiKey != "" {
		opts = append(opts, option.WithAPIKey(apiKey))
	}
	return &AnthropicStreamLLM{
		client:    anthropic.NewClient(opts...),
		model:     model,
		maxTokens: 1024,
	}
}

func (l *AnthropicStreamLLM) Name() string { return "anthropic-stream-llm" }

func (l *AnthropicStreamLLM) Generate(ctx context.Context, history []orchestrator.Message, tools []orchestrator.ToolDefinition, onEvent func(orchestrator.LLMEvent)) error {
	system, messages := convertHistoryToSDK(history)
	if len(messages) == 0 {
		onEvent(orchestrator.LLMEvent{Kind: orchestrator.LLMFinish})
		return nil
	}

	params := anthropic.MessageNewParams{
		Model:     anthropic.Model(l.model),
		Messages:  messages,
		MaxTokens: l.maxTokens,
	}
	if system != "" {
		params.System = []anthropic.TextBlockParam{{Text: system}}
	}
	if len(tools) > 0 {
		params.Tools = convertToolsToSDK(tools)
	}

	stream := l.client.Messages.NewStreaming(ctx, params)

	onEvent(orchestrator.LLMEvent{Kind: orchestrator.LLMStart})
	onEvent(orchestrator.LLMEvent{Kind: orchestrator.LLMTextStart})

	toolInputBuffers := make(map[int64]*strings.Builder)
	toolNames := make(map[int64]string)
	toolIDs := make(map[int64]string)
	textOpen := true

	for stream.Next() {
		if ctx.Err() != nil {
			onEvent(orchestrator.LLMEvent{Kind: orchestrator.LLMAbort})
			return ctx.Err()
		}

		event := stream.Current()
		switch event.Type {
		case "content_block_start":
			if event.ContentBlock.Type == "tool_use" {
				toolInputBuffers[event.Index] = &strings.Builder{}
				toolNames[event.Index] = event.ContentBlock.Name
				toolIDs[event.Index] = event.ContentBlock.ID
			}

		case "content_block_delta":
			switch event.Delta.Type {
			case "text_delta":
				if event.Delta.Text != "" {
					onEvent(orchestrator.LLMEvent{Kind: orchestrator.LLMTextDelta, TextDelta: event.Delta.Text})
				}
			case "input_json_delta":
				if buf, ok := toolInputBuffers[event.Index]; ok {
					buf.WriteString(event.Delta.PartialJSON)
				}
			}

		case "content_block_stop":
			if buf, ok := toolInputBuffers[event.Index]; ok {
				args := buf.String()
				if args == "" {
					args = "{}"
				}
				onEvent(orchestrator.LLMEvent{
					Kind:       orchestrator.LLMToolCall,
					ToolCallID: toolIDs[event.Index],
					ToolName:   toolNames[event.Index],
					ToolArgs:   args,
				})
				delete(toolInputBuffers, event.Index)
			}

		case "message_stop":
			if textOpen {
				onEvent(orchestrator.LLMEvent{Kind: orchestrator.LLMTextEnd})
				textOpen = false
			}
		}
	}

	if err := stream.Err(); err != nil && err != io.EOF {
		if ctx.Err() != nil {
			onEvent(orchestrator.LLMEvent{Kind: orchestrator.LLMAbort})
			return ctx.Err()
		}
		onEvent(orchestrator.LLMEvent{Kind: orchestrator.LLMError, Err: fmt.Errorf("anthropic stream: %w", err)})
		return err
	}

	if textOpen {
		onEvent(orchestrator.LLMEvent{Kind: orchestrator.LLMTextEnd})
	}
	onEvent(orchestrator.LLMEvent{Kind: orchestrator.LLMFinish})
	return nil
}

func convertHistoryToSDK(messages []orchestrator.Message) (string, []anthropic.MessageParam) {
	var systemPrompts []string
	var sdkMessages []anthropic.MessageParam

	for _, msg := range messages {
		switch msg.Role {
		case orchestrator.RoleSystem:
			if msg.Content != "" {
				systemPrompts = append(systemPrompts, msg.Content)
			}
		case orchestrator.RoleUser:
			if msg.Content != "" {
				sdkMessages = append(sdkMessages, anthropic.NewUserMessage(anthropic.NewTextBlock(msg.Content)))
			}
		case orchestrator.RoleAssistant:
			var content []anthropic.ContentBlockParamUnion
			if msg.Content != "" {
				content = append(content, anthropic.NewTextBlock(msg.Content))
			}
			for _, p := range msg.Parts {
				if p.Kind != orchestrator.PartToolCall {
					continue
				}
				var input interface{} = map[string]interface{}{}
				if p.ToolArgs != "" {
					_ = json.Unmarshal([]byte(p.ToolArgs), &input)
				}
				content = append(content, anthropic.NewToolUseBlock(p.ToolCallID, input, p.ToolName))
			}
			if len(content) > 0 {
				sdkMessages = append(sdkMessages, anthropic.NewAssistantMessage(content...))
			}
		case orchestrator.RoleToolResult:
			for _, r := range msg.ToolResults {
				sdkMessages = append(sdkMessages, anthropic.NewUserMessage(
					anthropic.NewToolResultBlock(r.ToolCallID, r.Payload, false),
				))
			}
		}
	}

	return strings.Join(systemPrompts, "\n\n"), sdkMessages
}

func convertToolsToSDK(tools []orchestrator.ToolDefinition) []anthropic.ToolUnionParam {
	unions := make([]anthropic.ToolUnionParam, 0, len(tools))
	for _, t := range tools {
		param := anthropic.ToolParam{
			Name:        t.Name,
			Description: anthropic.String(t.Description),
		}
		if t.ParametersSchema != nil {
			schemaJSON, _ := json.Marshal(t.ParametersSchema)
			var inputSchema anthropic.ToolInputSchemaParam
			_ = json.Unmarshal(schemaJSON, &inputSchema)
			param.InputSchema = inputSchema
		}
		unions = append(unions, anthropic.ToolUnionParam{OfTool: &param})
	}
	return unions
}
