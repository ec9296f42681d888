package core

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"go.uber.org/zap"

	"mealplan-backend-go/internal/metrics"
	"mealplan-backend-go/internal/models"
)

const (
	mealPlanMaxDays     = 14
	mealPlanTemperature = 0.7
	mealPlanMaxTokens   = 1500
	// mealPlanMaxResponse bounds how much of the generator response is read.
	mealPlanMaxResponse = 1 << 20
)

// MealPlanConfig points the generator at an OpenAI-compatible chat completions endpoint.
type MealPlanConfig struct {
	APIKey  string
	BaseURL string
	Model   string
	Timeout time.Duration
}

type chatMessage struct {
	Role    string `json:"role"`
	Content string `json:"content"`
}

type chatRequest struct {
	Model       string        `json:"model"`
	Messages    []chatMessage `json:"messages"`
	Temperature float64       `json:"temperature"`
	MaxTokens   int           `json:"max_tokens"`
}

type chatResponse struct {
	Choices []struct {
		Message chatMessage `json:"message"`
	} `json:"choices"`
}

type chatError struct {
	Error struct {
		Message string `json:"message"`
		Code    any    `json:"code"`
	} `json:"error"`
}

// mealPlanService implements MealPlanService against a chat completions API.
type mealPlanService struct {
	cfg    MealPlanConfig
	client *http.Client
	logger *zap.Logger
}

// NewMealPlanService creates a MealPlanService. client may be nil.
func NewMealPlanService(cfg MealPlanConfig, client *http.Client, logger *zap.Logger) MealPlanService {
	if client == nil {
		client = &http.Client{Timeout: cfg.Timeout}
	}
	cfg.BaseURL = strings.TrimRight(cfg.BaseURL, "/")
	return &mealPlanService{cfg: cfg, client: client, logger: logger}
}

// Generate asks the model for a plan and decodes it. Output that is not a JSON object of
// days is ErrMealPlanFormat.
func (s *mealPlanService) Generate(ctx context.Context, req models.MealPlanRequest) (models.MealPlan, error) {
	if err := validateMealPlanRequest(req); err != nil {
		return nil, err
	}
	if s.cfg.APIKey == "" {
		return nil, fmt.Errorf("%w: MEALPLAN_API_KEY not set", ErrMealPlanBackend)
	}

	start := time.Now()
	plan, err := s.generate(ctx, req)
	result := "ok"
	if err != nil {
		result = KindOf(err).String()
	}
	metrics.MealPlanDuration.WithLabelValues(result).Observe(time.Since(start).Seconds())
	return plan, err
}

func (s *mealPlanService) generate(ctx context.Context, req models.MealPlanRequest) (models.MealPlan, error) {
	body, err := json.Marshal(chatRequest{
		Model:       s.cfg.Model,
		Messages:    []chatMessage{{Role: "user", Content: mealPlanPrompt(req)}},
		Temperature: mealPlanTemperature,
		MaxTokens:   mealPlanMaxTokens,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to marshal request: %w", err)
	}

	httpReq, err := http.NewRequestWithContext(ctx, http.MethodPost, s.cfg.BaseURL+"/chat/completions", bytes.NewReader(body))
	if err != nil {
		return nil, fmt.Errorf("failed to create request: %w", err)
	}
	httpReq.Header.Set("Authorization", "Bearer "+s.cfg.APIKey)
	httpReq.Header.Set("Content-Type", "application/json")

	resp, err := s.client.Do(httpReq)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrMealPlanBackend, err)
	}
	defer resp.Body.Close()

	respBody, err := io.ReadAll(io.LimitReader(resp.Body, mealPlanMaxResponse))
	if err != nil {
		return nil, fmt.Errorf("%w: reading response: %v", ErrMealPlanBackend, err)
	}
	if resp.StatusCode != http.StatusOK {
		var apiErr chatError
		if json.Unmarshal(respBody, &apiErr) == nil && apiErr.Error.Message != "" {
			return nil, fmt.Errorf("%w: status %d: %s", ErrMealPlanBackend, resp.StatusCode, apiErr.Error.Message)
		}
		return nil, fmt.Errorf("%w: status %d", ErrMealPlanBackend, resp.StatusCode)
	}

	var completion chatResponse
	if err := json.Unmarshal(respBody, &completion); err != nil {
		return nil, fmt.Errorf("%w: decoding completion: %v", ErrMealPlanFormat, err)
	}
	if len(completion.Choices) == 0 {
		return nil, fmt.Errorf("%w: completion has no choices", ErrMealPlanFormat)
	}

	plan, err := ParseMealPlan(completion.Choices[0].Message.Content)
	if err != nil {
		s.logger.Warn("Unreadable meal plan from generator", zap.String("model", s.cfg.Model), zap.Error(err))
		return nil, err
	}
	return plan, nil
}

// ParseMealPlan strips Markdown code fences from model output and decodes the plan.
func ParseMealPlan(content string) (models.MealPlan, error) {
	cleaned := strings.TrimSpace(content)
	cleaned = strings.ReplaceAll(cleaned, "```json", "")
	cleaned = strings.ReplaceAll(cleaned, "```", "")
	cleaned = strings.TrimSpace(cleaned)

	var plan models.MealPlan
	if err := json.Unmarshal([]byte(cleaned), &plan); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrMealPlanFormat, err)
	}
	if len(plan) == 0 {
		return nil, fmt.Errorf("%w: plan has no days", ErrMealPlanFormat)
	}
	return plan, nil
}

func validateMealPlanRequest(req models.MealPlanRequest) error {
	switch {
	case strings.TrimSpace(req.DietType) == "":
		return fmt.Errorf("%w: dietType is required", ErrInvalidInput)
	case req.Calories <= 0:
		return fmt.Errorf("%w: calories must be positive", ErrInvalidInput)
	case req.Days < 1 || req.Days > mealPlanMaxDays:
		return fmt.Errorf("%w: days must be between 1 and %d", ErrInvalidInput, mealPlanMaxDays)
	}
	return nil
}

func mealPlanPrompt(req models.MealPlanRequest) string {
	allergies := req.Allergies
	if allergies == "" {
		allergies = "none"
	}
	cuisine := req.Cuisine
	if cuisine == "" {
		cuisine = "no preference"
	}
	snacks := "no"
	meals := "- Breakfast\n- Lunch\n- Dinner\n"
	if req.Snacks {
		snacks = "yes"
		meals += "- Snacks\n"
	}

	var b strings.Builder
	fmt.Fprintf(&b, "You are a professional nutritionist. Create a %d-day meal plan for an individual following a %s diet aiming for %d calories per day.\n\n",
		req.Days, req.DietType, req.Calories)
	fmt.Fprintf(&b, "Allergies or restrictions: %s\nPreferred cuisine: %s\nSnacks included: %s\n\n", allergies, cuisine, snacks)
	b.WriteString("For each day, provide:\n")
	b.WriteString(meals)
	b.WriteString("\nUse simple ingredients and provide brief instructions. Include approximate calorie counts for each meal.\n\n")
	b.WriteString(`Return ONLY a valid JSON object formatted like this:
{
    "Monday": {
        "Breakfast": "Oatmeal with fruits - 350 calories",
        "Lunch": "Grilled chicken salad - 500 calories",
        "Dinner": "Steamed vegetables with quinoa - 600 calories",
        "Snacks": "Greek yogurt - 150 calories"
    }
}

Strictly ensure the response is only JSON, with no explanations, comments, Markdown formatting or backticks.`)
	return b.String()
}
