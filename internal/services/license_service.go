// Package services contains the business logic layer between the HTTP
// transport and the entitlement engine.
package services

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"time"

	apierrors "braindock/internal/errors"
	"braindock/internal/infrastructure"
	"braindock/internal/license"
)

// LicenseService provides business logic for entitlement operations.
type LicenseService interface {
	GetStatus(ctx context.Context) (*LicenseStatusResponse, error)
	ActivateWithKey(ctx context.Context, key string) error
	ConfirmPayment(ctx context.Context, sessionID, paymentReference, email string) error
	RedeemPromo(ctx context.Context, sessionID, promoCode, email string) error
	Revoke(ctx context.Context) error
	GetDebugInfo(ctx context.Context) (*LicenseDebugInfo, error)
}

// LicenseStatusResponse represents the license status payload.
type LicenseStatusResponse struct {
	Licensed      bool      `json:"licensed"`
	LicenseStatus string    `json:"license_status"` // active|not_activated
	Method        string    `json:"activation_method"`
	ActivatedAt   *string   `json:"activated_at,omitempty"`
	Email         *string   `json:"email,omitempty"`
	Message       string    `json:"message"`
	TraceID       string    `json:"trace_id"`
	Timestamp     time.Time `json:"timestamp"`
}

// LicenseDebugInfo represents diagnostic information for troubleshooting
// the persisted entitlement state.
type LicenseDebugInfo struct {
	FilePath        string     `json:"file_path"`
	FileExists      bool       `json:"file_exists"`
	IsReadable      bool       `json:"is_readable"`
	FileSize        int64      `json:"file_size,omitempty"`
	FilePermissions string     `json:"file_permissions,omitempty"`
	FileModTime     *time.Time `json:"file_mod_time,omitempty"`
	WorkingDir      string     `json:"working_dir"`
	LicenseStatus   string     `json:"license_status"`
	Method          string     `json:"activation_method"`
	TraceID         string     `json:"trace_id"`
	Timestamp       time.Time  `json:"timestamp"`
}

type licenseService struct {
	manager license.ManagerInterface
	logger  *slog.Logger
}

// NewLicenseService creates a new license service.
func NewLicenseService(manager license.ManagerInterface, logger *slog.Logger) LicenseService {
	if logger == nil {
		logger = slog.Default()
	}
	return &licenseService{
		manager: manager,
		logger:  logger.With(slog.String("service", "license")),
	}
}

// GetStatus returns the current entitlement status.
func (s *licenseService) GetStatus(ctx context.Context) (*LicenseStatusResponse, error) {
	traceID := infrastructure.GetTraceID(ctx)

	info := s.manager.LicenseInfo()

	resp := &LicenseStatusResponse{
		Licensed:  info.Licensed,
		Method:    string(info.Type),
		TraceID:   traceID,
		Timestamp: time.Now().UTC(),
	}
	if info.Licensed {
		resp.LicenseStatus = "active"
		resp.Message = "License is active"
		resp.ActivatedAt = info.ActivatedAt
		resp.Email = info.Email
	} else {
		resp.LicenseStatus = "not_activated"
		resp.Message = "No active license"
	}

	s.logger.InfoContext(ctx, "license status check",
		slog.String("trace_id", traceID),
		slog.Bool("licensed", info.Licensed),
		slog.String("method", string(info.Type)),
	)

	return resp, nil
}

// ActivateWithKey validates and activates a license key.
func (s *licenseService) ActivateWithKey(ctx context.Context, key string) error {
	ok, err := s.manager.ActivateWithKey(ctx, key)
	if err != nil {
		return fmt.Errorf("%w: %v", apierrors.ErrPersistenceFailure, err)
	}
	if !ok {
		return apierrors.ErrInvalidLicenseKey
	}
	return nil
}

// ConfirmPayment records a completed hosted payment.
func (s *licenseService) ConfirmPayment(ctx context.Context, sessionID, paymentReference, email string) error {
	if err := s.manager.ActivateWithHostedPayment(ctx, sessionID, paymentReference, email); err != nil {
		return fmt.Errorf("%w: %v", apierrors.ErrPersistenceFailure, err)
	}
	return nil
}

// RedeemPromo activates via a checkout session completed with a 100%
// promotion code.
func (s *licenseService) RedeemPromo(ctx context.Context, sessionID, promoCode, email string) error {
	if err := s.manager.ActivateWithPromo(ctx, sessionID, promoCode, email); err != nil {
		return fmt.Errorf("%w: %v", apierrors.ErrPersistenceFailure, err)
	}
	return nil
}

// Revoke clears the active entitlement. Revoking an unlicensed install is
// a no-op, not an error.
func (s *licenseService) Revoke(ctx context.Context) error {
	if err := s.manager.Revoke(ctx); err != nil {
		return fmt.Errorf("%w: %v", apierrors.ErrPersistenceFailure, err)
	}
	return nil
}

// GetDebugInfo returns diagnostics about the entitlement file.
func (s *licenseService) GetDebugInfo(ctx context.Context) (*LicenseDebugInfo, error) {
	traceID := infrastructure.GetTraceID(ctx)

	info := &LicenseDebugInfo{
		FilePath:  s.manager.StorePath(),
		TraceID:   traceID,
		Timestamp: time.Now().UTC(),
	}

	if wd, err := os.Getwd(); err == nil {
		info.WorkingDir = wd
	}

	if stat, err := os.Stat(info.FilePath); err == nil {
		info.FileExists = true
		info.FileSize = stat.Size()
		info.FilePermissions = stat.Mode().String()
		modTime := stat.ModTime()
		info.FileModTime = &modTime

		if f, err := os.Open(info.FilePath); err == nil {
			info.IsReadable = true
			f.Close()
		}
	}

	if s.manager.IsLicensed() {
		info.LicenseStatus = "active"
	} else {
		info.LicenseStatus = "not_activated"
	}
	info.Method = string(s.manager.LicenseType())

	s.logger.InfoContext(ctx, "license debug info collected",
		slog.String("trace_id", traceID),
		slog.Bool("file_exists", info.FileExists),
	)

	return info, nil
}
