package services

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"path"
	"strings"
	"time"

	"wmscore/internal/models"
	"wmscore/internal/repositories"

	"github.com/google/uuid"
	"github.com/rs/zerolog/log"
)

// imageURLExpiry bounds the presigned link returned with a verification.
const imageURLExpiry = 15 * time.Minute

// VerifyItemRequest carries a worker's label photo for one shipment item.
type VerifyItemRequest struct {
	ItemID      int64
	WorkerID    int64
	Image       []byte
	Filename    string
	ContentType string
}

// VerificationService runs a label through the verification engine, records
// the attempt and hands the outcome to the router.
type VerificationService interface {
	Verify(ctx context.Context, req VerifyItemRequest) (*models.VerificationResponse, error)
}

type verificationService struct {
	shipmentRepo repositories.ShipmentRepository
	logRepo      repositories.VerificationLogRepository
	topology     TopologyService
	engine       VerificationEngine
	images       ImageStore
	router       VerificationRouter
	timeout      time.Duration
}

// NewVerificationService wires the service. images may be nil.
func NewVerificationService(shipmentRepo repositories.ShipmentRepository, logRepo repositories.VerificationLogRepository,
	topology TopologyService, engine VerificationEngine, images ImageStore, router VerificationRouter, timeout time.Duration) VerificationService {
	return &verificationService{
		shipmentRepo: shipmentRepo,
		logRepo:      logRepo,
		topology:     topology,
		engine:       engine,
		images:       images,
		router:       router,
		timeout:      timeout,
	}
}

func (s *verificationService) Verify(ctx context.Context, req VerifyItemRequest) (*models.VerificationResponse, error) {
	item, err := s.shipmentRepo.GetItem(ctx, req.ItemID)
	if err != nil {
		return nil, err
	}
	shipment, err := s.shipmentRepo.GetByID(ctx, item.ShipmentID)
	if err != nil {
		return nil, err
	}
	sku, err := s.topology.GetSku(ctx, item.SkuID)
	if err != nil {
		return nil, err
	}
	expected := expectedFields(sku)

	imageObject := s.storeImage(ctx, req)

	result, engineErr := s.callEngine(ctx, req, expected)
	s.record(ctx, req, imageObject, expected, result)

	resp, err := s.router.Route(ctx, RouteInput{
		Item:     item,
		Shipment: shipment,
		Sku:      sku,
		WorkerID: req.WorkerID,
		Result:   *result,
	})
	if err != nil {
		return nil, err
	}
	if engineErr != nil {
		resp.Status = models.ResponseError
		resp.Message = "Label could not be verified automatically. Sent to supervisor for approval."
	}
	if imageObject != nil {
		resp.ImageURL = s.imageURL(ctx, *imageObject)
	}
	return resp, nil
}

func (s *verificationService) imageURL(ctx context.Context, objectName string) *string {
	url, err := s.images.GetPresignedURL(ctx, objectName, imageURLExpiry)
	if err != nil {
		log.Warn().Err(err).Str("object", objectName).Msg("failed to presign label image")
		return nil
	}
	return &url
}

// callEngine bounds the engine call by the configured timeout. A failed or
// timed-out call yields an unmatched result carrying the failure as an issue.
func (s *verificationService) callEngine(ctx context.Context, req VerifyItemRequest, expected models.LabelFields) (*models.VerificationResult, error) {
	engineCtx, cancel := context.WithTimeout(ctx, s.timeout)
	defer cancel()

	result, err := s.engine.Verify(engineCtx, VerifyLabelRequest{
		Image:    req.Image,
		Filename: req.Filename,
		Expected: expected,
	})
	if err != nil {
		log.Warn().Err(err).Int64("item_id", req.ItemID).Msg("verification engine call failed")
		return &models.VerificationResult{
			Matched: false,
			Issues:  []string{fmt.Sprintf("Verification engine error: %v", err)},
		}, err
	}
	return result, nil
}

func (s *verificationService) storeImage(ctx context.Context, req VerifyItemRequest) *string {
	if s.images == nil || len(req.Image) == 0 {
		return nil
	}
	ext := strings.ToLower(path.Ext(req.Filename))
	if ext == "" {
		ext = ".jpg"
	}
	objectName := fmt.Sprintf("labels/%d/%s%s", req.ItemID, uuid.NewString(), ext)
	if err := s.images.UploadImage(ctx, objectName, bytes.NewReader(req.Image), int64(len(req.Image)), req.ContentType); err != nil {
		log.Warn().Err(err).Int64("item_id", req.ItemID).Msg("failed to store label image")
		return nil
	}
	return &objectName
}

func (s *verificationService) record(ctx context.Context, req VerifyItemRequest, imageObject *string, expected models.LabelFields, result *models.VerificationResult) {
	extractedJSON, _ := json.Marshal(result.Extracted)
	expectedJSON, _ := json.Marshal(expected)
	outcome := models.VerificationMismatch
	if result.Matched {
		outcome = models.VerificationMatch
	}
	entry := &models.VerificationLog{
		ShipmentItemID: req.ItemID,
		WorkerID:       req.WorkerID,
		ImageObject:    imageObject,
		ExtractedData:  extractedJSON,
		ExpectedData:   expectedJSON,
		Confidence:     result.Confidence,
		Result:         outcome,
	}
	if err := s.logRepo.Create(ctx, entry); err != nil {
		log.Warn().Err(err).Int64("item_id", req.ItemID).Msg("failed to record verification log")
	}
}
