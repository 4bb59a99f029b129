package contacts

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"time"

	"go.uber.org/zap"

	"github.com/JuliusShade/FD-Lead-Gen/internal/ratelimit"
)

const (
	defaultApolloBaseURL = "https://api.apollo.io/api/v1"
	orgSearchPath        = "/mixed_companies/search"
	peopleSearchPath     = "/mixed_people/search"

	defaultPerPage = 10

	apolloGateKey = "enrichment"
)

// ApolloClient talks to the Apollo.io search endpoints.
type ApolloClient struct {
	apiKey string
	logger *zap.Logger
	gate   *ratelimit.Gate

	HTTPClient *http.Client
	BaseURL    string
	PerPage    int
}

func NewApolloClient(apiKey string, logger *zap.Logger, gate *ratelimit.Gate) *ApolloClient {
	return &ApolloClient{
		apiKey:     apiKey,
		logger:     logger,
		gate:       gate,
		HTTPClient: &http.Client{Timeout: 30 * time.Second},
		BaseURL:    defaultApolloBaseURL,
		PerPage:    defaultPerPage,
	}
}

type apolloOrgResponse struct {
	Organizations []struct {
		ID   string `json:"id"`
		Name string `json:"name"`
	} `json:"organizations"`
}

type apolloPeopleResponse struct {
	People []struct {
		Name        string `json:"name"`
		Title       string `json:"title"`
		Email       string `json:"email"`
		LinkedinURL string `json:"linkedin_url"`
	} `json:"people"`
}

func (c *ApolloClient) SearchOrganization(ctx context.Context, companyName string) (string, error) {
	payload := map[string]any{
		"q_organization_name": companyName,
		"page":                1,
		"per_page":            1,
	}

	var parsed apolloOrgResponse
	if err := c.post(ctx, orgSearchPath, payload, &parsed); err != nil {
		return "", err
	}

	if len(parsed.Organizations) == 0 {
		c.logger.Debug("no organization found", zap.String("company", companyName))
		return "", nil
	}

	org := parsed.Organizations[0]
	c.logger.Debug("organization resolved",
		zap.String("company", companyName),
		zap.String("organization_id", org.ID),
		zap.String("organization_name", org.Name),
	)

	return org.ID, nil
}

func (c *ApolloClient) SearchPeople(ctx context.Context, organizationID, title string) ([]Person, error) {
	payload := map[string]any{
		"organization_ids": []string{organizationID},
		"person_titles":    []string{title},
		"page":             1,
		"per_page":         c.PerPage,
	}

	var parsed apolloPeopleResponse
	if err := c.post(ctx, peopleSearchPath, payload, &parsed); err != nil {
		return nil, err
	}

	people := make([]Person, 0, len(parsed.People))
	for _, p := range parsed.People {
		people = append(people, Person{
			Name:     p.Name,
			Title:    p.Title,
			Email:    p.Email,
			LinkedIn: p.LinkedinURL,
		})
	}

	c.logger.Debug("people search complete",
		zap.String("organization_id", organizationID),
		zap.String("title", title),
		zap.Int("count", len(people)),
	)

	return people, nil
}

func (c *ApolloClient) post(ctx context.Context, path string, payload, target any) error {
	if err := c.gate.Wait(ctx, apolloGateKey); err != nil {
		return err
	}

	body, err := json.Marshal(payload)
	if err != nil {
		return fmt.Errorf("encoding request: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.BaseURL+path, bytes.NewReader(body))
	if err != nil {
		return fmt.Errorf("building request: %w", err)
	}

	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Cache-Control", "no-cache")
	req.Header.Set("X-Api-Key", c.apiKey)

	resp, err := c.HTTPClient.Do(req)
	if err != nil {
		return fmt.Errorf("executing request: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return fmt.Errorf("unexpected status %d from %s", resp.StatusCode, path)
	}

	if err := json.NewDecoder(resp.Body).Decode(target); err != nil {
		return fmt.Errorf("decoding response: %w", err)
	}

	return nil
}
