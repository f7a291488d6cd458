// Package lookup validates Peruvian document numbers and resolves them
// against SUNAT and RENIEC.
package lookup

import (
	"context"
	"errors"
	"strings"
	"time"

	"go.uber.org/zap"
	"golang.org/x/text/cases"
	"golang.org/x/text/language"

	"github.com/induservicios/backend/internal/domain/identity"
	"github.com/induservicios/backend/internal/domain/shared"
	"github.com/induservicios/backend/internal/infrastructure/cache"
	"github.com/induservicios/backend/internal/infrastructure/logger"
	"github.com/induservicios/backend/internal/infrastructure/lookup"
	"github.com/induservicios/backend/internal/infrastructure/telemetry"
)

const defaultCacheTTL = 24 * time.Hour

// Registry resolves document numbers
type Registry interface {
	RUC(ctx context.Context, ruc string) (*lookup.RUCRecord, error)
	DNI(ctx context.Context, dni string) (*lookup.DNIRecord, error)
}

// RUCResult is a taxpayer ready for checkout forms
type RUCResult struct {
	RUC          string `json:"ruc"`
	RazonSocial  string `json:"razon_social"`
	Estado       string `json:"estado"`
	Condicion    string `json:"condicion"`
	Direccion    string `json:"direccion"`
	Distrito     string `json:"distrito"`
	Provincia    string `json:"provincia"`
	Departamento string `json:"departamento"`
	// Active is true for ACTIVO and HABIDO taxpayers, the only ones that
	// may receive a factura
	Active bool `json:"active"`
}

// DNIResult is a person ready for checkout forms
type DNIResult struct {
	DNI             string `json:"dni"`
	Nombres         string `json:"nombres"`
	ApellidoPaterno string `json:"apellido_paterno"`
	ApellidoMaterno string `json:"apellido_materno"`
	FullName        string `json:"full_name"`
}

// ValidationResult is the offline check of a document number
type ValidationResult struct {
	Type        identity.DocumentType `json:"type"`
	Number      string                `json:"number"`
	Valid       bool                  `json:"valid"`
	Message     string                `json:"message,omitempty"`
	CheckDigit  string                `json:"check_digit,omitempty"`
	CheckLetter string                `json:"check_letter,omitempty"`
	IsCompany   bool                  `json:"is_company,omitempty"`
}

// Service validates, caches and title-cases lookups
type Service struct {
	registry Registry
	cache    cache.Cache
	ttl      time.Duration
	logger   *zap.Logger
	title    cases.Caser
}

// NewService creates a lookup service. A zero ttl caches for 24 hours.
func NewService(registry Registry, c cache.Cache, ttl time.Duration, logger *zap.Logger) *Service {
	if ttl <= 0 {
		ttl = defaultCacheTTL
	}
	return &Service{
		registry: registry,
		cache:    c,
		ttl:      ttl,
		logger:   logger,
		title:    cases.Title(language.Spanish),
	}
}

// Validate checks a document number without calling any registry
func (s *Service) Validate(docType identity.DocumentType, number string) ValidationResult {
	number = strings.TrimSpace(number)
	res := ValidationResult{Type: docType, Number: number}

	if err := identity.ValidateDocument(docType, number); err != nil {
		res.Message = err.Error()
		return res
	}
	res.Valid = true

	switch docType {
	case identity.DocumentTypeDNI:
		if digit, letter, ok := identity.DNICheckDigit(number); ok {
			res.CheckDigit = string(digit)
			res.CheckLetter = string(letter)
		}
	case identity.DocumentTypeRUC:
		res.IsCompany = identity.IsCompanyRUC(number)
	}
	return res
}

// LookupRUC resolves a RUC, validating its check digit first
func (s *Service) LookupRUC(ctx context.Context, ruc string) (*RUCResult, error) {
	ruc = strings.TrimSpace(ruc)
	if err := identity.ValidateRUC(ruc); err != nil {
		return nil, err
	}

	ctx, span := telemetry.StartServiceSpan(ctx, "lookup", "ruc", telemetry.AttrDocumentType, "RUC")
	defer span.End()

	key := "lookup:ruc:" + ruc
	if cached, ok := fromCache[RUCResult](ctx, s, key); ok {
		telemetry.AddEvent(span, "cache_hit")
		return cached, nil
	}

	rec, err := s.registry.RUC(ctx, ruc)
	if err != nil {
		telemetry.RecordError(span, err)
		return nil, s.translate(ctx, err, "RUC")
	}

	res := &RUCResult{
		RUC:          ruc,
		RazonSocial:  strings.TrimSpace(rec.RazonSocial),
		Estado:       strings.ToUpper(strings.TrimSpace(rec.Estado)),
		Condicion:    strings.ToUpper(strings.TrimSpace(rec.Condicion)),
		Direccion:    strings.TrimSpace(rec.Direccion),
		Distrito:     s.titleCase(rec.Distrito),
		Provincia:    s.titleCase(rec.Provincia),
		Departamento: s.titleCase(rec.Departamento),
	}
	// Natural person RUCs carry the owner's name; company names keep their legal casing.
	if !identity.IsCompanyRUC(ruc) {
		res.RazonSocial = s.titleCase(res.RazonSocial)
	}
	res.Active = res.Estado == "ACTIVO" && res.Condicion == "HABIDO"

	s.toCache(ctx, key, res)
	return res, nil
}

// LookupDNI resolves a DNI to the holder's names
func (s *Service) LookupDNI(ctx context.Context, dni string) (*DNIResult, error) {
	dni = strings.TrimSpace(dni)
	if err := identity.ValidateDNI(dni); err != nil {
		return nil, err
	}
	// the printed verification character is not part of the registry key
	dni = dni[:8]

	ctx, span := telemetry.StartServiceSpan(ctx, "lookup", "dni", telemetry.AttrDocumentType, "DNI")
	defer span.End()

	key := "lookup:dni:" + dni
	if cached, ok := fromCache[DNIResult](ctx, s, key); ok {
		telemetry.AddEvent(span, "cache_hit")
		return cached, nil
	}

	rec, err := s.registry.DNI(ctx, dni)
	if err != nil {
		telemetry.RecordError(span, err)
		return nil, s.translate(ctx, err, "DNI")
	}

	res := &DNIResult{
		DNI:             dni,
		Nombres:         s.titleCase(rec.Nombres),
		ApellidoPaterno: s.titleCase(rec.ApellidoPaterno),
		ApellidoMaterno: s.titleCase(rec.ApellidoMaterno),
	}
	res.FullName = strings.Join(strings.Fields(res.Nombres+" "+res.ApellidoPaterno+" "+res.ApellidoMaterno), " ")

	s.toCache(ctx, key, res)
	return res, nil
}

func (s *Service) titleCase(v string) string {
	return s.title.String(strings.ToLower(strings.TrimSpace(v)))
}

func (s *Service) translate(ctx context.Context, err error, kind string) error {
	switch {
	case errors.Is(err, lookup.ErrNotFound):
		return shared.NewDomainError(shared.ErrNotFound.Code, kind+" not found")
	case errors.Is(err, lookup.ErrUnavailable):
		logger.Or(ctx, s.logger).Warn("Document lookup unavailable", zap.String("kind", kind), zap.Error(err))
		return shared.NewDomainError(shared.ErrExternalService.Code, kind+" lookup is temporarily unavailable")
	}
	return err
}

func fromCache[T any](ctx context.Context, s *Service, key string) (*T, bool) {
	if s.cache == nil {
		return nil, false
	}
	v, ok, err := cache.GetJSON[T](ctx, s.cache, key)
	if err != nil {
		logger.Or(ctx, s.logger).Warn("Lookup cache read failed", zap.String("key", key), zap.Error(err))
		return nil, false
	}
	return v, ok
}

func (s *Service) toCache(ctx context.Context, key string, value any) {
	if s.cache == nil {
		return
	}
	if err := cache.SetJSON(ctx, s.cache, key, value, s.ttl); err != nil {
		logger.Or(ctx, s.logger).Warn("Lookup cache write failed", zap.String("key", key), zap.Error(err))
	}
}
