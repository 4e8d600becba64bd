package commands

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"ChipTrack/internal/config"
)

type healthResponse struct {
	Status string `json:"status"`
}

// statusCmd опрашивает /healthz работающего сервера.
type statusCmd struct{}

func (statusCmd) Name() string        { return "status" }
func (statusCmd) Description() string { return "Check that the server is up" }
func (statusCmd) Usage() string       { return "status [server URL]" }

func (statusCmd) Run(ctx context.Context, cfg *config.Config, args []string) error {
	if len(args) > 1 {
		return ErrUsage
	}
	base := "http://" + cfg.BaseURL
	if len(args) == 1 {
		base = args[0]
	}
	return Status(ctx, base)
}

func Status(ctx context.Context, baseURL string) error {
	endpoint := strings.TrimRight(baseURL, "/") + "/healthz"

	ctx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, endpoint, nil)
	if err != nil {
		return err
	}
	resp, err := http.DefaultClient.Do(req)
	if err != nil {
		return err
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return err
	}
	if resp.StatusCode != http.StatusOK {
		return fmt.Errorf("server status %d: %s", resp.StatusCode, strings.TrimSpace(string(body)))
	}
	var hr healthResponse
	if err := json.Unmarshal(body, &hr); err != nil {
		return fmt.Errorf("decode: %w", err)
	}
	fmt.Fprintln(Out, "Status:", hr.Status)
	return nil
}

func init() { RegisterCmd(statusCmd{}) }
