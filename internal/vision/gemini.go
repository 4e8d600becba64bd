package vision

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"strings"

	"google.golang.org/genai"
)

// DefaultModel - модель Gemini по умолчанию.
const DefaultModel = "gemini-2.0-flash"

const extractionPrompt = `You read photos of handwritten or printed repair-shop job cards.
Return a JSON object with the fields customerName, phoneNumber, brand, jobNumber and notes.
Use null for any field you cannot read with confidence. Do not invent values.
brand is the device brand and model. notes is the reported fault or any other remarks.`

// GeminiExtractor распознаёт бланки через Google Gemini.
type GeminiExtractor struct {
	client *genai.Client
	model  string
}

// NewGeminiExtractor создаёт клиент Gemini. Пустой ключ - ErrNotConfigured.
func NewGeminiExtractor(ctx context.Context, apiKey, model string) (*GeminiExtractor, error) {
	if apiKey == "" {
		return nil, ErrNotConfigured
	}
	if model == "" {
		model = DefaultModel
	}
	client, err := genai.NewClient(ctx, &genai.ClientConfig{
		APIKey:  apiKey,
		Backend: genai.BackendGeminiAPI,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to create GenAI client: %w", err)
	}
	return &GeminiExtractor{client: client, model: model}, nil
}

func nullableString(desc string) *genai.Schema {
	nullable := true
	return &genai.Schema{Type: genai.TypeString, Nullable: &nullable, Description: desc}
}

func extractionSchema() *genai.Schema {
	return &genai.Schema{
		Type: genai.TypeObject,
		Properties: map[string]*genai.Schema{
			"customerName": nullableString("customer full name"),
			"phoneNumber":  nullableString("customer phone number, digits only"),
			"brand":        nullableString("device brand and model"),
			"jobNumber":    nullableString("job card number"),
			"notes":        nullableString("reported issue or remarks"),
		},
		PropertyOrdering: []string{"customerName", "phoneNumber", "brand", "jobNumber", "notes"},
	}
}

// Extract отправляет изображение в модель и разбирает ответ.
func (g *GeminiExtractor) Extract(ctx context.Context, img Image) (*Extraction, error) {
	if len(img.Data) == 0 {
		return nil, ErrInvalidImage
	}
	contents := []*genai.Content{
		genai.NewContentFromParts([]*genai.Part{
			genai.NewPartFromBytes(img.Data, img.MIMEType),
			genai.NewPartFromText(extractionPrompt),
		}, genai.RoleUser),
	}
	resp, err := g.client.Models.GenerateContent(ctx, g.model, contents, &genai.GenerateContentConfig{
		ResponseMIMEType: "application/json",
		ResponseSchema:   extractionSchema(),
	})
	if err != nil {
		return nil, classifyAPIError(err)
	}
	return ParseExtraction(resp.Text())
}

// classifyAPIError сводит ошибки API к сентинелам пакета.
func classifyAPIError(err error) error {
	var apiErr genai.APIError
	var apiErrPtr *genai.APIError
	switch {
	case errors.As(err, &apiErr):
	case errors.As(err, &apiErrPtr) && apiErrPtr != nil:
		apiErr = *apiErrPtr
	default:
		return fmt.Errorf("gemini request: %w", err)
	}

	switch {
	case apiErr.Code == http.StatusTooManyRequests || apiErr.Status == "RESOURCE_EXHAUSTED":
		return fmt.Errorf("%w: %s", ErrQuotaExceeded, apiErr.Message)
	case apiErr.Code == http.StatusUnauthorized || apiErr.Code == http.StatusForbidden,
		strings.Contains(apiErr.Message, "API key not valid"),
		strings.Contains(fmt.Sprint(apiErr.Details), "API_KEY_INVALID"),
		apiErr.Status == "PERMISSION_DENIED", apiErr.Status == "UNAUTHENTICATED":
		return fmt.Errorf("%w: %s", ErrInvalidCredentials, apiErr.Message)
	default:
		return fmt.Errorf("gemini request: %w", err)
	}
}
