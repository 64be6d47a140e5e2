package service

import (
	"errors"
	"fmt"
	"net/url"
	"strconv"
	"time"

	"github.com/cloudinary/cloudinary-go/v2/api"
	"github.com/vedran77/dealerchat/internal/config"
	"github.com/vedran77/dealerchat/internal/domain"
)

var ErrAttachmentsDisabled = errors.New("attachments are not configured")

// AttachmentService hands out signed parameters so clients upload chat
// attachments straight to Cloudinary and send back only the resulting URL.
type AttachmentService struct {
	cfg config.CloudinaryConfig
	now func() time.Time
}

func NewAttachmentService(cfg config.CloudinaryConfig) *AttachmentService {
	return &AttachmentService{cfg: cfg, now: time.Now}
}

func (s *AttachmentService) Sign() (*domain.AttachmentSignature, error) {
	if !s.cfg.Enabled() {
		return nil, ErrAttachmentsDisabled
	}

	timestamp := strconv.FormatInt(s.now().Unix(), 10)
	params := url.Values{}
	params.Set("timestamp", timestamp)
	params.Set("folder", s.cfg.UploadFolder)

	signature, err := api.SignParameters(params, s.cfg.APISecret)
	if err != nil {
		return nil, fmt.Errorf("signing upload params: %w", err)
	}

	return &domain.AttachmentSignature{
		Timestamp: timestamp,
		Signature: signature,
		APIKey:    s.cfg.APIKey,
		CloudName: s.cfg.CloudName,
		Folder:    s.cfg.UploadFolder,
		UploadURL: fmt.Sprintf("https://api.cloudinary.com/v1_1/%s/auto/upload", s.cfg.CloudName),
	}, nil
}
