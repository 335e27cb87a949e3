package services

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"mime/multipart"
	"net/http"
	"strings"
	"time"

	"wmscore/internal/models"
)

// VerifyLabelRequest is one label image plus the attributes it should show.
type VerifyLabelRequest struct {
	Image    []byte
	Filename string
	Expected models.LabelFields
}

// VerificationEngine reads a package label and compares it with the expected attributes.
type VerificationEngine interface {
	Verify(ctx context.Context, req VerifyLabelRequest) (*models.VerificationResult, error)
}

type verifyLabelResponse struct {
	Status             string   `json:"status"`
	VerificationResult string   `json:"verification_result"`
	Issues             []string `json:"issues"`
	Data               struct {
		Sku             string   `json:"sku"`
		Pid             string   `json:"pid"`
		Weight          string   `json:"weight"`
		Dimensions      string   `json:"dimensions"`
		Color           string   `json:"color"`
		Brand           string   `json:"brand"`
		ConfidenceScore float64  `json:"confidence_score"`
		RawLines        []string `json:"raw_lines"`
	} `json:"data"`
}

type httpVerificationEngine struct {
	baseURL    string
	httpClient *http.Client
}

// NewHTTPVerificationEngine calls POST {baseURL}/verify-label. Every call is
// bounded by timeout.
func NewHTTPVerificationEngine(baseURL string, timeout time.Duration) VerificationEngine {
	return &httpVerificationEngine{
		baseURL:    strings.TrimRight(baseURL, "/"),
		httpClient: &http.Client{Timeout: timeout},
	}
}

func (e *httpVerificationEngine) Verify(ctx context.Context, req VerifyLabelRequest) (*models.VerificationResult, error) {
	body := &bytes.Buffer{}
	form := multipart.NewWriter(body)

	filename := req.Filename
	if filename == "" {
		filename = "label.jpg"
	}
	part, err := form.CreateFormFile("file", filename)
	if err != nil {
		return nil, err
	}
	if _, err := part.Write(req.Image); err != nil {
		return nil, err
	}
	fields := map[string]string{
		"expected_pid":        req.Expected.ProductCode,
		"expected_sku":        req.Expected.SkuCode,
		"expected_weight":     req.Expected.Weight,
		"expected_color":      req.Expected.Color,
		"expected_dimensions": req.Expected.Dimensions,
	}
	for name, value := range fields {
		if value == "" {
			continue
		}
		if err := form.WriteField(name, value); err != nil {
			return nil, err
		}
	}
	if err := form.Close(); err != nil {
		return nil, err
	}

	httpReq, err := http.NewRequestWithContext(ctx, http.MethodPost, e.baseURL+"/verify-label", body)
	if err != nil {
		return nil, err
	}
	httpReq.Header.Set("Content-Type", form.FormDataContentType())

	resp, err := e.httpClient.Do(httpReq)
	if err != nil {
		return nil, fmt.Errorf("verification engine: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		msg, _ := io.ReadAll(io.LimitReader(resp.Body, 512))
		return nil, fmt.Errorf("verification engine returned %d: %s", resp.StatusCode, strings.TrimSpace(string(msg)))
	}

	var decoded verifyLabelResponse
	if err := json.NewDecoder(resp.Body).Decode(&decoded); err != nil {
		return nil, fmt.Errorf("decode verification response: %w", err)
	}

	return &models.VerificationResult{
		// Anything other than an explicit MATCH, including ERROR, is a mismatch.
		Matched:    strings.EqualFold(decoded.VerificationResult, models.VerificationMatch),
		Confidence: decoded.Data.ConfidenceScore,
		Extracted: models.LabelFields{
			ProductCode: decoded.Data.Pid,
			SkuCode:     decoded.Data.Sku,
			Weight:      decoded.Data.Weight,
			Color:       decoded.Data.Color,
			Dimensions:  decoded.Data.Dimensions,
		},
		Issues: decoded.Issues,
	}, nil
}
