package openai

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"strings"
	"time"

	openai "github.com/sashabaranov/go-openai"
	"github.com/sashabaranov/go-openai/jsonschema"
	"go.uber.org/zap"

	"github.com/lifecare-ai/prodsearch/internal/domain"
	"github.com/lifecare-ai/prodsearch/internal/metrics"
	"github.com/lifecare-ai/prodsearch/internal/retry"
)

// specFunctionName is the tool the model must call to hand back the
// structured specification.
const specFunctionName = "get_specifications"

// extractSystemPrompt steers the model toward structured extraction:
// superlatives collapse to BIGGEST/SMALLEST, absent fields come back
// empty, and specs embedded in product names are split out.
const extractSystemPrompt = `Bạn là 1 chuyên gia extract thông tin từ câu hỏi.
Hãy giúp tôi lấy các thông số kỹ thuật, tên, group của sản phẩm có trong câu hỏi
Lưu ý:
	+ Với các thông số không có giá trị cụ thể mà có các cụm như: lớn, đắt, to nhất... thì trả về BIGGEST ngược lại trả về SMALLEST
	+ Nếu không có thông số nào thì trả ra '' cho thông số ấy.
	+ 1 số tên sản phẩm có chứa cả thông số thì bạn cần tách giá trị đó sang trường của thông số đó`

// Extractor turns a free-form Vietnamese product question into the
// seven-field specification payload via an LLM tool call.
type Extractor struct {
	client *openai.Client
	model  string
	tools  []openai.Tool
	policy retry.Policy
	logger *zap.Logger
}

// ExtractorConfig holds the extraction LLM settings. Groups is the
// catalog group vocabulary embedded into the tool schema so the model
// only answers with known group names.
type ExtractorConfig struct {
	APIKey  string
	BaseURL string
	Model   string
	Groups  []string
	Retry   retry.Policy
	Logger  *zap.Logger
}

// NewExtractor creates an OpenAI-compatible extraction client.
func NewExtractor(cfg *ExtractorConfig) *Extractor {
	clientCfg := openai.DefaultConfig(cfg.APIKey)
	if cfg.BaseURL != "" {
		clientCfg.BaseURL = cfg.BaseURL
	}

	return &Extractor{
		client: openai.NewClientWithConfig(clientCfg),
		model:  cfg.Model,
		tools:  []openai.Tool{specificationTool(cfg.Groups)},
		policy: cfg.Retry,
		logger: cfg.Logger,
	}
}

// Extract asks the model to call get_specifications on the user query and
// returns the raw JSON arguments of the first tool call. A completion
// without a tool call surfaces domain.ErrExtractionFailed.
func (x *Extractor) Extract(ctx context.Context, userQuery string) (string, error) {
	req := openai.ChatCompletionRequest{
		Model: x.model,
		Messages: []openai.ChatCompletionMessage{
			{Role: openai.ChatMessageRoleSystem, Content: extractSystemPrompt},
			{Role: openai.ChatMessageRoleUser, Content: userQuery},
		},
		Tools:      x.tools,
		ToolChoice: "auto",
	}

	start := time.Now()

	var resp openai.ChatCompletionResponse
	err := x.policy.Do(ctx, func(ctx context.Context) error {
		var callErr error
		resp, callErr = x.client.CreateChatCompletion(ctx, req)
		if callErr != nil {
			return parseExtractionError(callErr)
		}
		return nil
	}, isRetryable)

	duration := time.Since(start)

	if err != nil {
		metrics.ExtractionRequestsTotal.WithLabelValues(x.model, "error").Inc()
		if isRetryable(err) {
			err = fmt.Errorf("%w: %w", domain.ErrBackendUnavailable, err)
		}
		return "", err
	}

	args, ok := toolArguments(resp)
	if !ok {
		metrics.ExtractionRequestsTotal.WithLabelValues(x.model, "no_tool_call").Inc()
		return "", fmt.Errorf("model answered without calling %s: %w", specFunctionName, domain.ErrExtractionFailed)
	}

	metrics.ExtractionRequestsTotal.WithLabelValues(x.model, "success").Inc()
	metrics.ExtractionRequestDuration.WithLabelValues(x.model).Observe(duration.Seconds())

	return args, nil
}

// toolArguments pulls the raw arguments string from the first tool call
// of the first choice.
func toolArguments(resp openai.ChatCompletionResponse) (string, bool) {
	if len(resp.Choices) == 0 {
		return "", false
	}
	calls := resp.Choices[0].Message.ToolCalls
	if len(calls) == 0 || calls[0].Function.Arguments == "" {
		return "", false
	}
	return calls[0].Function.Arguments, true
}

// specificationTool builds the get_specifications function schema. Every
// field is a required string; the model fills '' for whatever the query
// does not mention.
func specificationTool(groups []string) openai.Tool {
	groupDesc := fmt.Sprintf(
		"lấy ra nhóm sản phẩm có trong câu hỏi từ list: [%s]. Chỉ trả ra tên group có trong list đã cho trước",
		strings.Join(groups, ", "))

	params := jsonschema.Definition{
		Type: jsonschema.Object,
		Properties: map[string]jsonschema.Definition{
			"group": {
				Type:        jsonschema.String,
				Description: groupDesc,
			},
			"object": {
				Type:        jsonschema.String,
				Description: "tên hoặc loại sản phẩm có trong câu hỏi. Ví dụ: điều hòa, điều hòa MDV 9000BTU, máy giặt LG ...",
			},
			"price": {
				Type:        jsonschema.String,
				Description: "giá của sản phẩm có trong câu hỏi. Ví dụ : 1 triệu, 1000đ, ...",
			},
			"power": {
				Type:        jsonschema.String,
				Description: "công suất của sản phẩm có trong câu hỏi. Ví dụ : 5W, 9000BTU, ...",
			},
			"weight": {
				Type:        jsonschema.String,
				Description: "cân nặng của sản phẩm có trong câu hỏi. Ví dụ : 1 cân, 10kg, 20 gam, ...",
			},
			"volume": {
				Type:        jsonschema.String,
				Description: "dung tích của sản phẩm có trong câu hỏi. Ví dụ : 1 lít, 3 mét khối ...",
			},
			"intent": {
				Type:        jsonschema.String,
				Description: "ý định của người dùng khi hỏi câu hỏi. Ví dụ: mua, tìm hiểu, so sánh, ...",
			},
		},
		Required: []string{"group", "object", "price", "power", "weight", "volume", "intent"},
	}

	return openai.Tool{
		Type: openai.ToolTypeFunction,
		Function: &openai.FunctionDefinition{
			Name:        specFunctionName,
			Description: "Lấy ra loại hoặc tên sản phẩm và các thông số kỹ thuật của sản phẩm có trong câu hỏi. Sử dụng khi câu hỏi có thông tin về 1 trong các các thông số [loại hoặc tên sản phẩm, giá, cân nặng, công suất hoặc dung tích]",
			Parameters:  params,
		},
	}
}

// parseExtractionError maps chat completion failures onto domain
// sentinels so the retry loop can classify them.
func parseExtractionError(err error) error {
	status := apiStatus(err)
	if status == http.StatusTooManyRequests {
		return fmt.Errorf("extraction API error %d: %s: %w", status, apiDetail(err), domain.ErrRateLimited)
	}
	if status >= http.StatusInternalServerError {
		return fmt.Errorf("extraction API error %d: %s: %w", status, apiDetail(err), errServerSide)
	}
	if status > 0 {
		return fmt.Errorf("extraction API error %d: %s", status, apiDetail(err))
	}
	if errors.Is(err, context.DeadlineExceeded) || errors.Is(err, context.Canceled) {
		return fmt.Errorf("extraction request: %w", err)
	}
	return fmt.Errorf("extraction request failed: %w", err)
}
