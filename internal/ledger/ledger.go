// Package ledger owns every mutation of a complaint: it validates requested
// state transitions against role permissions and lock state, persists each
// change together with a chained log record in one transaction, and exposes
// chain verification and the decrypt-on-read path.
package ledger

import (
	"crypto/subtle"
	"errors"
	"fmt"
	"strings"
	"time"
	"unicode/utf8"

	"go.uber.org/zap"

	"hostelwatch/backend/internal/config"
	"hostelwatch/backend/internal/cryptobox"
	"hostelwatch/backend/internal/hashchain"
	"hostelwatch/backend/internal/models"
	"hostelwatch/backend/internal/rbac"
)

// Store is the transactional persistence port. AppendLog must re-read the
// chain tip under a row lock and fail with ErrConcurrentModification when it
// no longer equals expectedTip, so two racing writers can never fork the
// chain.
type Store interface {
	CreateComplaintTx(c *models.Complaint, parties []models.ComplaintParty, first *models.LogRecord) error
	Complaint(id string) (*models.Complaint, error)
	Parties(id string) ([]models.ComplaintParty, error)
	Logs(id string) ([]models.LogRecord, error)
	TipHash(id string) (string, error)
	AppendLog(rec *models.LogRecord, expectedTip string, updates map[string]any) error
	FindStaff(vitID, role string) (*models.User, error)
}

// Directory resolves an actor identity to its authoritative role set.
// Tokens are treated as identity assertions only; permissions are always
// re-derived through this port.
type Directory interface {
	RolesFor(vitID string) ([]string, error)
}

// Publisher receives committed log events. Publishing is best-effort and
// never fails a mutation.
type Publisher interface {
	PublishLogEvent(ev models.LogEvent) error
}

// Service is the complaint ledger.
type Service struct {
	store  Store
	dir    Directory
	box    *cryptobox.Box
	events Publisher
	logger *zap.Logger
}

// NewService creates the ledger. events may be nil.
func NewService(store Store, dir Directory, box *cryptobox.Box, events Publisher, logger *zap.Logger) *Service {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Service{store: store, dir: dir, box: box, events: events, logger: logger}
}

// PartyInput is one participant on a new complaint.
type PartyInput struct {
	VitID     string
	PartyRole string
	IsPrimary bool
	Notes     string
}

// CreateInput carries everything needed to file a complaint.
type CreateInput struct {
	Title       string
	Description string
	Category    string
	Subcategory string
	Severity    string
	Location    string
	Parties     []PartyInput
}

// Receipt is returned once at creation; the verification code is not shown
// again.
type Receipt struct {
	ComplaintID      string `json:"complaint_id"`
	VerificationCode string `json:"verification_code"`
}

// SecretPayload is the sealed portion of a complaint.
type SecretPayload struct {
	Description string `json:"description"`
	Location    string `json:"location"`
}

// DecryptedView is the result of ReadSecure. When the actor may not see
// unredacted content, Redacted is true and the secret fields stay empty.
// When decryption fails, SecretAvailable is false and the read still
// succeeds.
type DecryptedView struct {
	Complaint       models.Complaint
	Parties         []models.ComplaintParty
	Description     string
	Location        string
	Redacted        bool
	SecretAvailable bool
}

func (s *Service) permsFor(actor string) ([]string, error) {
	roles, err := s.dir.RolesFor(actor)
	if err != nil {
		return nil, fmt.Errorf("resolve roles: %w: %w", ErrStorage, err)
	}
	return rbac.Permissions(roles), nil
}

func isAdmin(perms []string) bool {
	return rbac.HasAny(perms, []string{"admin"})
}

func validateCreate(in CreateInput) error {
	// Limits count runes, not bytes.
	if utf8.RuneCountInString(strings.TrimSpace(in.Title)) < config.MinTitleLength {
		return fmt.Errorf("%w: title must be at least %d characters", ErrValidation, config.MinTitleLength)
	}
	if utf8.RuneCountInString(in.Title) > config.MaxTitleLength {
		return fmt.Errorf("%w: title too long", ErrValidation)
	}
	if utf8.RuneCountInString(strings.TrimSpace(in.Description)) < config.MinDescriptionLength {
		return fmt.Errorf("%w: description must be at least %d characters", ErrValidation, config.MinDescriptionLength)
	}
	if strings.TrimSpace(in.Category) == "" {
		return fmt.Errorf("%w: category is required", ErrValidation)
	}
	if len(in.Parties) == 0 {
		return fmt.Errorf("%w: at least one party is required", ErrValidation)
	}
	primaries := 0
	for _, p := range in.Parties {
		if strings.TrimSpace(p.VitID) == "" || strings.TrimSpace(p.PartyRole) == "" {
			return fmt.Errorf("%w: party vit_id and role are required", ErrValidation)
		}
		if p.IsPrimary {
			primaries++
		}
	}
	if primaries != 1 {
		return fmt.Errorf("%w: exactly one primary party is required", ErrValidation)
	}
	if in.Severity != "" {
		known := false
		for _, sev := range config.Severities {
			if in.Severity == sev {
				known = true
				break
			}
		}
		if !known {
			return fmt.Errorf("%w: unknown severity %q", ErrValidation, in.Severity)
		}
	}
	return nil
}

func titlePreview(title string) string {
	title = strings.TrimSpace(title)
	runes := []rune(title)
	if len(runes) <= config.TitlePreviewLength {
		return title
	}
	return string(runes[:config.TitlePreviewLength])
}

// Create validates the input, seals the sensitive payload and writes the
// complaint, its parties and the first chained log record in one transaction.
func (s *Service) Create(actor string, in CreateInput) (*Receipt, error) {
	roles, err := s.dir.RolesFor(actor)
	if err != nil {
		return nil, fmt.Errorf("resolve roles: %w: %w", ErrStorage, err)
	}
	perms := rbac.Permissions(roles)
	if !rbac.HasAny(perms, []string{"complaint:create", "complaint:create:self"}) {
		return nil, fmt.Errorf("%w: %s may not file complaints", ErrForbidden, actor)
	}

	if err := validateCreate(in); err != nil {
		return nil, err
	}

	secret, err := s.box.Seal(SecretPayload{Description: in.Description, Location: in.Location})
	if err != nil {
		return nil, fmt.Errorf("seal payload: %w", err)
	}

	now := time.Now().UTC().Truncate(time.Second)
	id := NewComplaintID()
	code := NewVerificationCode()

	filedBy := ""
	if len(roles) > 0 {
		filedBy = rbac.Normalize(roles[0])
	}

	complaint := &models.Complaint{
		ComplaintID:      id,
		Title:            in.Title,
		TitlePreview:     titlePreview(in.Title),
		SecretJSON:       secret,
		Severity:         in.Severity,
		Category:         in.Category,
		Subcategory:      in.Subcategory,
		Status:           StatusSubmitted,
		FiledBy:          filedBy,
		CreatedByVit:     actor,
		VerificationCode: code,
		CreatedOn:        now,
		UpdatedOn:        now,
	}

	parties := make([]models.ComplaintParty, 0, len(in.Parties))
	for _, p := range in.Parties {
		parties = append(parties, models.ComplaintParty{
			ComplaintID: id,
			VitID:       strings.ToUpper(strings.TrimSpace(p.VitID)),
			PartyRole:   p.PartyRole,
			IsPrimary:   p.IsPrimary,
			Notes:       p.Notes,
		})
	}

	status := StatusSubmitted
	first := s.buildRecord(id, actor, "created", &status, "", now, hashchain.RootHash)

	if err := s.store.CreateComplaintTx(complaint, parties, first); err != nil {
		return nil, fmt.Errorf("create complaint: %w: %w", ErrStorage, err)
	}

	s.publish(first)
	s.logger.Info("complaint created",
		zap.String("complaint_id", id),
		zap.String("actor", actor),
	)
	return &Receipt{ComplaintID: id, VerificationCode: code}, nil
}

func (s *Service) buildRecord(complaintID, actor, action string, statusAfter *string, notes string, at time.Time, prevHash string) *models.LogRecord {
	content := hashchain.RecordContent{
		ComplaintID: complaintID,
		ActorVitID:  actor,
		Action:      action,
		StatusAfter: statusAfter,
		Notes:       notes,
		CreatedOn:   hashchain.Timestamp(at),
	}
	return &models.LogRecord{
		ComplaintID: complaintID,
		ActorVitID:  actor,
		Action:      action,
		StatusAfter: statusAfter,
		Notes:       notes,
		CreatedOn:   at,
		PrevHash:    prevHash,
		RecordHash:  hashchain.Next(prevHash, content),
	}
}

// appendRecord reads the current tip, chains a new record onto it and hands
// both to the store, which re-checks the tip inside the transaction.
func (s *Service) appendRecord(complaintID, actor, action string, statusAfter *string, notes string, updates map[string]any) (*models.LogRecord, error) {
	tip, err := s.store.TipHash(complaintID)
	if err != nil {
		return nil, fmt.Errorf("read tip: %w: %w", ErrStorage, err)
	}

	now := time.Now().UTC().Truncate(time.Second)
	rec := s.buildRecord(complaintID, actor, action, statusAfter, notes, now, tip)

	if updates == nil {
		updates = map[string]any{}
	}
	updates["updated_on"] = now

	if err := s.store.AppendLog(rec, tip, updates); err != nil {
		if errors.Is(err, ErrConcurrentModification) {
			return nil, err
		}
		return nil, fmt.Errorf("append log: %w: %w", ErrStorage, err)
	}

	s.publish(rec)
	return rec, nil
}

func (s *Service) publish(rec *models.LogRecord) {
	if s.events == nil {
		return
	}
	ev := models.LogEvent{
		ComplaintID: rec.ComplaintID,
		Action:      rec.Action,
		StatusAfter: rec.StatusAfter,
		ActorVitID:  rec.ActorVitID,
		RecordHash:  rec.RecordHash,
	}
	if err := s.events.PublishLogEvent(ev); err != nil {
		s.logger.Warn("publish log event failed",
			zap.String("complaint_id", rec.ComplaintID),
			zap.Error(err),
		)
	}
}

func (s *Service) loadForWrite(id, actor string, wanted []string) (*models.Complaint, []string, error) {
	perms, err := s.permsFor(actor)
	if err != nil {
		return nil, nil, err
	}
	admin := isAdmin(perms)
	if !admin && !rbac.HasAny(perms, wanted) {
		return nil, nil, fmt.Errorf("%w: missing %v", ErrForbidden, wanted)
	}

	c, err := s.store.Complaint(id)
	if err != nil {
		return nil, nil, fmt.Errorf("load complaint: %w: %w", ErrStorage, err)
	}
	if c == nil {
		return nil, nil, fmt.Errorf("%w: %s", ErrNotFound, id)
	}
	if c.IsLocked && !admin {
		return nil, nil, fmt.Errorf("%w: locked by %s", ErrLocked, c.LockOwnerVit)
	}
	return c, perms, nil
}

// Transition moves a complaint along the status graph and appends the
// corresponding log record.
func (s *Service) Transition(id, actor, requested, note string) (*models.LogRecord, error) {
	wanted := []string{"complaint:update:block", "complaint:update:all"}
	if requested == StatusResolved {
		wanted = append(wanted, "complaint:resolve")
	}

	c, _, err := s.loadForWrite(id, actor, wanted)
	if err != nil {
		return nil, err
	}
	if !CanTransition(c.Status, requested) {
		return nil, fmt.Errorf("%w: %s -> %s", ErrInvalidTransition, c.Status, requested)
	}

	status := requested
	return s.appendRecord(id, actor, "update", &status, note, map[string]any{"status": requested})
}

// Escalate records an escalation without changing the status.
func (s *Service) Escalate(id, actor, note string) (*models.LogRecord, error) {
	c, _, err := s.loadForWrite(id, actor, []string{"complaint:escalate"})
	if err != nil {
		return nil, err
	}

	status := c.Status
	rec, err := s.appendRecord(id, actor, "escalated", &status, note, nil)
	if err != nil {
		return nil, err
	}
	s.logger.Info("complaint escalated",
		zap.String("complaint_id", id),
		zap.String("actor", actor),
	)
	return rec, nil
}

// Lock places an administrative hold. Admin only; a held complaint must be
// unlocked before another hold can replace it.
func (s *Service) Lock(id, actor, reason string) (*models.LogRecord, error) {
	perms, err := s.permsFor(actor)
	if err != nil {
		return nil, err
	}
	if !isAdmin(perms) {
		return nil, fmt.Errorf("%w: lock requires an admin grant", ErrForbidden)
	}
	c, err := s.store.Complaint(id)
	if err != nil {
		return nil, fmt.Errorf("load complaint: %w: %w", ErrStorage, err)
	}
	if c == nil {
		return nil, fmt.Errorf("%w: %s", ErrNotFound, id)
	}
	if c.IsLocked {
		return nil, fmt.Errorf("%w: already held by %s", ErrLocked, c.LockOwnerVit)
	}

	now := time.Now().UTC().Truncate(time.Second)
	return s.appendRecord(id, actor, "locked", nil, reason, map[string]any{
		"is_locked":      true,
		"lock_owner_vit": actor,
		"lock_reason":    reason,
		"locked_on":      now,
	})
}

// Unlock clears an administrative hold. Admin only.
func (s *Service) Unlock(id, actor, reason string) (*models.LogRecord, error) {
	perms, err := s.permsFor(actor)
	if err != nil {
		return nil, err
	}
	if !isAdmin(perms) {
		return nil, fmt.Errorf("%w: unlock requires an admin grant", ErrForbidden)
	}
	c, err := s.store.Complaint(id)
	if err != nil {
		return nil, fmt.Errorf("load complaint: %w: %w", ErrStorage, err)
	}
	if c == nil {
		return nil, fmt.Errorf("%w: %s", ErrNotFound, id)
	}

	return s.appendRecord(id, actor, "unlocked", nil, reason, map[string]any{
		"is_locked":      false,
		"lock_owner_vit": "",
		"lock_reason":    "",
		"locked_on":      nil,
	})
}

// Assign hands a complaint to a staff member of the expected role. A freshly
// submitted complaint moves to in_review as part of the assignment.
func (s *Service) Assign(id, actor, targetVit, targetRole, note string) (*models.LogRecord, error) {
	c, _, err := s.loadForWrite(id, actor, []string{"complaint:update:block", "complaint:update:all"})
	if err != nil {
		return nil, err
	}

	target, err := s.store.FindStaff(strings.TrimSpace(targetVit), rbac.Normalize(targetRole))
	if err != nil {
		return nil, fmt.Errorf("resolve target: %w: %w", ErrStorage, err)
	}
	if target == nil {
		return nil, fmt.Errorf("%w: %s (%s)", ErrTargetNotFound, targetVit, targetRole)
	}

	updates := map[string]any{"assigned_to": target.VitID}
	if target.BlockCode != "" {
		updates["assigned_block"] = target.BlockCode
	}

	status := c.Status
	if c.Status == StatusSubmitted {
		status = StatusInReview
		updates["status"] = status
	}
	return s.appendRecord(id, actor, "assigned", &status, note, updates)
}

// Reopen takes a resolved or rejected complaint back to in_review. It
// requires an explicit reopen grant or an admin grant and is itself logged.
func (s *Service) Reopen(id, actor, note string) (*models.LogRecord, error) {
	perms, err := s.permsFor(actor)
	if err != nil {
		return nil, err
	}
	if !isAdmin(perms) && !rbac.HasAny(perms, []string{"complaint:reopen"}) {
		return nil, fmt.Errorf("%w: reopen requires an elevated grant", ErrForbidden)
	}

	c, err := s.store.Complaint(id)
	if err != nil {
		return nil, fmt.Errorf("load complaint: %w: %w", ErrStorage, err)
	}
	if c == nil {
		return nil, fmt.Errorf("%w: %s", ErrNotFound, id)
	}
	if !IsTerminal(c.Status) {
		return nil, fmt.Errorf("%w: reopen only applies to resolved or rejected cases", ErrInvalidTransition)
	}

	status := StatusInReview
	return s.appendRecord(id, actor, "reopened", &status, note, map[string]any{"status": status})
}

// VerifyChain recomputes the complaint's full hash chain. It returns nil for
// an intact chain, a *hashchain.IntegrityError for a broken one, and a
// storage error if the logs cannot be read.
func (s *Service) VerifyChain(id string) error {
	logs, err := s.store.Logs(id)
	if err != nil {
		return fmt.Errorf("read logs: %w: %w", ErrStorage, err)
	}

	links := make([]hashchain.Link, 0, len(logs))
	for _, l := range logs {
		links = append(links, hashchain.Link{
			Content: hashchain.RecordContent{
				ComplaintID: l.ComplaintID,
				ActorVitID:  l.ActorVitID,
				Action:      l.Action,
				StatusAfter: l.StatusAfter,
				Notes:       l.Notes,
				CreatedOn:   hashchain.Timestamp(l.CreatedOn),
			},
			PrevHash:   l.PrevHash,
			RecordHash: l.RecordHash,
		})
	}
	return hashchain.Verify(links)
}

// mayViewSecret is the single rule for unredacted access: an admin grant,
// a read-all grant, or the filer reading their own case.
func mayViewSecret(perms []string, actor string, c *models.Complaint) bool {
	return isAdmin(perms) ||
		rbac.HasAny(perms, []string{"complaint:read:all"}) ||
		(actor == c.CreatedByVit && rbac.HasAny(perms, []string{"complaint:read:self"}))
}

// History returns the complaint's log records in chain order. Free-text notes
// are blanked for actors who may not view unredacted content; hashes and
// actions stay visible so anyone can still follow the chain.
func (s *Service) History(id, actor string) ([]models.LogRecord, error) {
	perms, err := s.permsFor(actor)
	if err != nil {
		return nil, err
	}

	c, err := s.store.Complaint(id)
	if err != nil {
		return nil, fmt.Errorf("load complaint: %w: %w", ErrStorage, err)
	}
	if c == nil {
		return nil, fmt.Errorf("%w: %s", ErrNotFound, id)
	}

	logs, err := s.store.Logs(id)
	if err != nil {
		return nil, fmt.Errorf("read logs: %w: %w", ErrStorage, err)
	}
	if !mayViewSecret(perms, actor, c) {
		for i := range logs {
			logs[i].Notes = ""
		}
	}
	return logs, nil
}

// ReadSecure returns the complaint with the sealed payload decrypted when the
// actor may view unredacted content. Decryption failures degrade to an
// unavailable payload instead of failing the read.
func (s *Service) ReadSecure(id, actor string) (*DecryptedView, error) {
	perms, err := s.permsFor(actor)
	if err != nil {
		return nil, err
	}

	c, err := s.store.Complaint(id)
	if err != nil {
		return nil, fmt.Errorf("load complaint: %w: %w", ErrStorage, err)
	}
	if c == nil {
		return nil, fmt.Errorf("%w: %s", ErrNotFound, id)
	}

	parties, err := s.store.Parties(id)
	if err != nil {
		return nil, fmt.Errorf("load parties: %w: %w", ErrStorage, err)
	}

	allowed := mayViewSecret(perms, actor, c)

	view := &DecryptedView{Complaint: *c, Parties: parties}
	view.Complaint.SecretJSON = ""

	if !allowed {
		view.Redacted = true
		view.Complaint.VerificationCode = ""
		return view, nil
	}

	var secret SecretPayload
	if s.box.OpenMaybe(c.SecretJSON, &secret) {
		view.Description = secret.Description
		view.Location = secret.Location
		view.SecretAvailable = true
	} else {
		s.logger.Warn("sealed payload unavailable",
			zap.String("complaint_id", id),
		)
	}
	return view, nil
}

// VerifyReceipt checks a filer's out-of-band verification code.
func (s *Service) VerifyReceipt(id, code string) (bool, error) {
	c, err := s.store.Complaint(id)
	if err != nil {
		return false, fmt.Errorf("load complaint: %w: %w", ErrStorage, err)
	}
	if c == nil {
		return false, fmt.Errorf("%w: %s", ErrNotFound, id)
	}
	ok := subtle.ConstantTimeCompare([]byte(c.VerificationCode), []byte(strings.ToUpper(strings.TrimSpace(code)))) == 1
	return ok, nil
}
