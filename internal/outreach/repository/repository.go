package repository

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"

	"outreach_backend/internal/outreach/domain"
)

var (
	ErrNotFound       = errors.New("record not found")
	ErrDuplicateEmail = errors.New("lead email already registered")
)

// Repository is the pgx-backed implementation of Store.
type Repository struct {
	pool *pgxpool.Pool
}

func New(pool *pgxpool.Pool) *Repository {
	return &Repository{pool: pool}
}

const leadColumns = `id, clinic_id, name, email, phone, status, tags, last_contacted_at, marketing_opt_in, created_at, updated_at`

func scanLead(row pgx.Row) (domain.Lead, error) {
	var lead domain.Lead
	var status string
	err := row.Scan(
		&lead.ID,
		&lead.ClinicID,
		&lead.Name,
		&lead.Email,
		&lead.Phone,
		&status,
		&lead.Tags,
		&lead.LastContactedAt,
		&lead.MarketingOptIn,
		&lead.CreatedAt,
		&lead.UpdatedAt,
	)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return domain.Lead{}, ErrNotFound
		}
		return domain.Lead{}, err
	}
	lead.Status = domain.Status(status)
	return lead, nil
}

// GetEligibleLeads returns a bounded slice of leads matching the filter,
// oldest contact first so starved leads surface before recently-touched ones.
func (r *Repository) GetEligibleLeads(ctx context.Context, filter LeadFilter) ([]domain.Lead, error) {
	var sb strings.Builder
	sb.WriteString(`SELECT ` + leadColumns + ` FROM leads WHERE 1=1`)

	args := make([]any, 0, 4)
	if len(filter.Statuses) > 0 {
		statuses := make([]string, 0, len(filter.Statuses))
		for _, s := range filter.Statuses {
			statuses = append(statuses, string(s))
		}
		args = append(args, statuses)
		fmt.Fprintf(&sb, " AND status = ANY($%d)", len(args))
	}
	if filter.WithoutTag != "" {
		args = append(args, filter.WithoutTag)
		fmt.Fprintf(&sb, " AND NOT ($%d = ANY(tags))", len(args))
	}
	if filter.RequireOptIn {
		sb.WriteString(" AND marketing_opt_in = true")
	}
	if filter.RequireEmail {
		sb.WriteString(" AND email IS NOT NULL AND email <> ''")
	}

	limit := filter.Limit
	if limit <= 0 {
		limit = 50
	}
	args = append(args, limit)
	fmt.Fprintf(&sb, " ORDER BY last_contacted_at ASC NULLS FIRST, created_at ASC LIMIT $%d", len(args))

	rows, err := r.pool.Query(ctx, sb.String(), args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	leads := make([]domain.Lead, 0, limit)
	for rows.Next() {
		lead, err := scanLead(rows)
		if err != nil {
			return nil, err
		}
		leads = append(leads, lead)
	}
	return leads, rows.Err()
}

func (r *Repository) GetLead(ctx context.Context, id uuid.UUID) (domain.Lead, error) {
	row := r.pool.QueryRow(ctx, `SELECT `+leadColumns+` FROM leads WHERE id = $1`, id)
	return scanLead(row)
}

// GetLeadByEmail looks a lead up by its address, case-insensitively.
func (r *Repository) GetLeadByEmail(ctx context.Context, email string) (domain.Lead, error) {
	row := r.pool.QueryRow(ctx, `SELECT `+leadColumns+` FROM leads WHERE lower(email) = lower($1) LIMIT 1`, email)
	return scanLead(row)
}

// CreateLead inserts a new lead. A second lead with the same email is
// rejected with ErrDuplicateEmail by the unique index on leads.email.
func (r *Repository) CreateLead(ctx context.Context, params CreateLeadParams) (domain.Lead, error) {
	tags := params.Tags
	if tags == nil {
		tags = []string{}
	}
	row := r.pool.QueryRow(ctx, `
		INSERT INTO leads (id, clinic_id, name, email, phone, status, tags, marketing_opt_in)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8)
		RETURNING `+leadColumns,
		uuid.New(), params.ClinicID, params.Name, params.Email, params.Phone,
		string(domain.StatusNew), tags, params.MarketingOptIn)
	lead, err := scanLead(row)
	if err != nil {
		var pgErr *pgconn.PgError
		if errors.As(err, &pgErr) && pgErr.Code == "23505" {
			return domain.Lead{}, ErrDuplicateEmail
		}
		return domain.Lead{}, err
	}
	return lead, nil
}

// UpdateLead applies a partial update in one atomic statement.
func (r *Repository) UpdateLead(ctx context.Context, id uuid.UUID, params UpdateLeadParams) (domain.Lead, error) {
	sets := []string{"updated_at = now()"}
	args := []any{id}

	if params.Status != nil {
		args = append(args, string(*params.Status))
		sets = append(sets, fmt.Sprintf("status = $%d", len(args)))
	}
	if params.Tags != nil {
		args = append(args, *params.Tags)
		sets = append(sets, fmt.Sprintf("tags = $%d", len(args)))
	}
	if params.LastContactedAt != nil {
		args = append(args, *params.LastContactedAt)
		sets = append(sets, fmt.Sprintf("last_contacted_at = $%d", len(args)))
	}

	query := fmt.Sprintf(`UPDATE leads SET %s WHERE id = $1 RETURNING %s`,
		strings.Join(sets, ", "), leadColumns)
	return scanLead(r.pool.QueryRow(ctx, query, args...))
}

const campaignColumns = `id, name, channel, template, subject, daily_limit, sent_today, total_sent, status, created_at, updated_at`

func scanCampaign(row pgx.Row) (domain.Campaign, error) {
	var c domain.Campaign
	var channel, status string
	err := row.Scan(
		&c.ID,
		&c.Name,
		&channel,
		&c.Template,
		&c.Subject,
		&c.DailyLimit,
		&c.SentToday,
		&c.TotalSent,
		&status,
		&c.CreatedAt,
		&c.UpdatedAt,
	)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return domain.Campaign{}, ErrNotFound
		}
		return domain.Campaign{}, err
	}
	c.Channel = domain.Channel(channel)
	c.Status = domain.CampaignStatus(status)
	return c, nil
}

func (r *Repository) GetCampaign(ctx context.Context, id uuid.UUID) (domain.Campaign, error) {
	row := r.pool.QueryRow(ctx, `SELECT `+campaignColumns+` FROM campaigns WHERE id = $1`, id)
	return scanCampaign(row)
}

func (r *Repository) ListActiveCampaigns(ctx context.Context, channel domain.Channel) ([]domain.Campaign, error) {
	rows, err := r.pool.Query(ctx, `
		SELECT `+campaignColumns+`
		FROM campaigns
		WHERE status = 'active' AND channel = $1
		ORDER BY created_at ASC
	`, string(channel))
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	campaigns := make([]domain.Campaign, 0)
	for rows.Next() {
		c, err := scanCampaign(rows)
		if err != nil {
			return nil, err
		}
		campaigns = append(campaigns, c)
	}
	return campaigns, rows.Err()
}

// IncrementCampaignSent bumps both daily and total counters, refusing to
// break the sent_today <= daily_limit invariant at the database level.
func (r *Repository) IncrementCampaignSent(ctx context.Context, id uuid.UUID) error {
	tag, err := r.pool.Exec(ctx, `
		UPDATE campaigns
		SET sent_today = sent_today + 1,
		    total_sent = total_sent + 1,
		    updated_at = now()
		WHERE id = $1 AND sent_today < daily_limit
	`, id)
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return fmt.Errorf("campaign %s has no remaining daily capacity", id)
	}
	return nil
}

// ResetCampaignDailyCounters zeroes sent_today across all campaigns. Invoked
// at the same day boundary as the budget governor's lazy rollover.
func (r *Repository) ResetCampaignDailyCounters(ctx context.Context) error {
	_, err := r.pool.Exec(ctx, `UPDATE campaigns SET sent_today = 0, updated_at = now() WHERE sent_today > 0`)
	return err
}

// EnrollLeads inserts pending recipient links, skipping leads already
// enrolled. Returns the number of newly enrolled leads.
func (r *Repository) EnrollLeads(ctx context.Context, campaignID uuid.UUID, leadIDs []uuid.UUID) (int, error) {
	enrolled := 0
	for _, leadID := range leadIDs {
		tag, err := r.pool.Exec(ctx, `
			INSERT INTO campaign_recipients (id, campaign_id, lead_id, status)
			VALUES ($1, $2, $3, 'pending')
			ON CONFLICT (campaign_id, lead_id) DO NOTHING
		`, uuid.New(), campaignID, leadID)
		if err != nil {
			return enrolled, err
		}
		enrolled += int(tag.RowsAffected())
	}
	return enrolled, nil
}

const linkColumns = `id, campaign_id, lead_id, status, sent_at, error_message, created_at`

func scanLink(row pgx.Row) (domain.CampaignRecipientLink, error) {
	var link domain.CampaignRecipientLink
	var status string
	err := row.Scan(
		&link.ID,
		&link.CampaignID,
		&link.LeadID,
		&status,
		&link.SentAt,
		&link.ErrorMessage,
		&link.CreatedAt,
	)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return domain.CampaignRecipientLink{}, ErrNotFound
		}
		return domain.CampaignRecipientLink{}, err
	}
	link.Status = domain.LinkStatus(status)
	return link, nil
}

func (r *Repository) GetPendingLinks(ctx context.Context, campaignID uuid.UUID, limit int) ([]domain.CampaignRecipientLink, error) {
	if limit <= 0 {
		limit = 10
	}
	rows, err := r.pool.Query(ctx, `
		SELECT `+linkColumns+`
		FROM campaign_recipients
		WHERE campaign_id = $1 AND status = 'pending'
		ORDER BY created_at ASC
		LIMIT $2
	`, campaignID, limit)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	links := make([]domain.CampaignRecipientLink, 0, limit)
	for rows.Next() {
		link, err := scanLink(rows)
		if err != nil {
			return nil, err
		}
		links = append(links, link)
	}
	return links, rows.Err()
}

func (r *Repository) MarkLinkSent(ctx context.Context, linkID uuid.UUID, sentAt time.Time) error {
	tag, err := r.pool.Exec(ctx, `
		UPDATE campaign_recipients
		SET status = 'sent', sent_at = $2, error_message = NULL
		WHERE id = $1 AND status = 'pending'
	`, linkID, sentAt)
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return ErrNotFound
	}
	return nil
}

func (r *Repository) MarkLinkFailed(ctx context.Context, linkID uuid.UUID, errorMessage string) error {
	tag, err := r.pool.Exec(ctx, `
		UPDATE campaign_recipients
		SET status = 'failed', error_message = $2
		WHERE id = $1 AND status = 'pending'
	`, linkID, errorMessage)
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return ErrNotFound
	}
	return nil
}
