package database

import (
	"context"
	"sort"
	"time"

	"github.com/doug-martin/goqu/v9"
	"github.com/google/uuid"
	"github.com/medconnect/clinic-backend/internal/domain/entities"
	"github.com/medconnect/clinic-backend/internal/domain/repositories"
	"github.com/medconnect/clinic-backend/internal/infrastructure/clients/postgres"
	apperrors "github.com/medconnect/clinic-backend/pkg/errors"
)

var messageColumns = []interface{}{
	"id", "sender_id", "receiver_id", "content", "type", "read", "created_at",
}

// MessageAdapter implements the MessageRepository interface
type MessageAdapter struct {
	client *postgres.Client
	db     *goqu.Database
}

// NewMessageAdapter creates a new message adapter
func NewMessageAdapter(client *postgres.Client) repositories.MessageRepository {
	return &MessageAdapter{
		client: client,
		db:     goqu.New("postgres", client.DB()),
	}
}

func scanMessage(row interface{ Scan(...interface{}) error }) (*entities.Message, error) {
	m := &entities.Message{}
	if err := row.Scan(&m.ID, &m.SenderID, &m.ReceiverID, &m.Content, &m.Type, &m.Read, &m.CreatedAt); err != nil {
		return nil, err
	}
	return m, nil
}

func (a *MessageAdapter) query(ctx context.Context, ds *goqu.SelectDataset) ([]*entities.Message, error) {
	query, _, err := ds.ToSQL()
	if err != nil {
		return nil, apperrors.NewInternalError("failed to build query", err)
	}

	rows, err := a.client.DB().QueryContext(ctx, query)
	if err != nil {
		return nil, translate(err, "message", "list")
	}
	defer rows.Close()

	messages := []*entities.Message{}
	for rows.Next() {
		m, err := scanMessage(rows)
		if err != nil {
			return nil, apperrors.NewInternalError("failed to scan message", err)
		}
		messages = append(messages, m)
	}
	if err := rows.Err(); err != nil {
		return nil, apperrors.NewInternalError("failed to iterate messages", err)
	}
	return messages, nil
}

// Create inserts a message
func (a *MessageAdapter) Create(ctx context.Context, m *entities.Message) error {
	if m.ID == "" {
		m.ID = uuid.New().String()
	}
	m.CreatedAt = time.Now()

	query, _, err := a.db.Insert("messages").Rows(goqu.Record{
		"id":          m.ID,
		"sender_id":   m.SenderID,
		"receiver_id": m.ReceiverID,
		"content":     m.Content,
		"type":        m.Type,
		"read":        false,
		"created_at":  m.CreatedAt,
	}).ToSQL()
	if err != nil {
		return apperrors.NewInternalError("failed to build insert query", err)
	}

	if _, err := a.client.DB().ExecContext(ctx, query); err != nil {
		return translate(err, "message", "create")
	}
	return nil
}

// CreateMany inserts msgs with a single multi-row INSERT
func (a *MessageAdapter) CreateMany(ctx context.Context, msgs []*entities.Message) error {
	if len(msgs) == 0 {
		return nil
	}
	now := time.Now()
	rows := make([]interface{}, 0, len(msgs))
	for _, m := range msgs {
		if m.ID == "" {
			m.ID = uuid.New().String()
		}
		m.CreatedAt = now
		rows = append(rows, goqu.Record{
			"id":          m.ID,
			"sender_id":   m.SenderID,
			"receiver_id": m.ReceiverID,
			"content":     m.Content,
			"type":        m.Type,
			"read":        false,
			"created_at":  m.CreatedAt,
		})
	}

	query, _, err := a.db.Insert("messages").Rows(rows...).ToSQL()
	if err != nil {
		return apperrors.NewInternalError("failed to build insert query", err)
	}
	if _, err := a.client.DB().ExecContext(ctx, query); err != nil {
		return translate(err, "message", "create")
	}
	return nil
}

// GetByID retrieves a message by ID
func (a *MessageAdapter) GetByID(ctx context.Context, id string) (*entities.Message, error) {
	query, _, err := a.db.Select(messageColumns...).From("messages").Where(goqu.Ex{"id": id}).ToSQL()
	if err != nil {
		return nil, apperrors.NewInternalError("failed to build query", err)
	}

	m, err := scanMessage(a.client.DB().QueryRowContext(ctx, query))
	if err != nil {
		return nil, translate(err, "message", "get")
	}
	return m, nil
}

// Conversation returns the messages exchanged between a and b in either direction, oldest first
func (a *MessageAdapter) Conversation(ctx context.Context, userA, userB string) ([]*entities.Message, error) {
	ds := a.db.Select(messageColumns...).From("messages").
		Where(goqu.Or(
			goqu.Ex{"sender_id": userA, "receiver_id": userB},
			goqu.Ex{"sender_id": userB, "receiver_id": userA},
		)).
		Order(goqu.I("created_at").Asc())
	return a.query(ctx, ds)
}

// MarkRead marks one message as read
func (a *MessageAdapter) MarkRead(ctx context.Context, id string) error {
	query, _, err := a.db.Update("messages").Set(goqu.Record{"read": true}).Where(goqu.Ex{"id": id}).ToSQL()
	if err != nil {
		return apperrors.NewInternalError("failed to build update query", err)
	}

	result, err := a.client.DB().ExecContext(ctx, query)
	if err != nil {
		return translate(err, "message", "update")
	}
	return expectAffected(result, "message")
}

// MarkConversationRead marks unread messages from partnerID to readerID as read
func (a *MessageAdapter) MarkConversationRead(ctx context.Context, readerID, partnerID string) ([]string, error) {
	query, _, err := a.db.Update("messages").
		Set(goqu.Record{"read": true}).
		Where(goqu.Ex{"sender_id": partnerID, "receiver_id": readerID, "read": false}).
		Returning("id").
		ToSQL()
	if err != nil {
		return nil, apperrors.NewInternalError("failed to build update query", err)
	}

	rows, err := a.client.DB().QueryContext(ctx, query)
	if err != nil {
		return nil, translate(err, "message", "update")
	}
	defer rows.Close()

	var ids []string
	for rows.Next() {
		var id string
		if err := rows.Scan(&id); err != nil {
			return nil, apperrors.NewInternalError("failed to scan message id", err)
		}
		ids = append(ids, id)
	}
	if err := rows.Err(); err != nil {
		return nil, apperrors.NewInternalError("failed to iterate messages", err)
	}
	return ids, nil
}

// Partners lists the distinct counterparts of userID with the latest message of each conversation
func (a *MessageAdapter) Partners(ctx context.Context, userID string) ([]*entities.ConversationPartner, error) {
	partner := goqu.Case().
		When(goqu.C("sender_id").Eq(userID), goqu.C("receiver_id")).
		Else(goqu.C("sender_id"))

	latest := a.db.From("messages").
		Select(partner.As("partner_id"), goqu.C("content"), goqu.C("created_at")).
		Distinct(goqu.I("partner_id")).
		Where(goqu.Or(goqu.C("sender_id").Eq(userID), goqu.C("receiver_id").Eq(userID))).
		Order(goqu.I("partner_id").Asc(), goqu.I("created_at").Desc())

	unread := a.db.From(goqu.T("messages").As("m")).
		Select(goqu.COUNT("*")).
		Where(
			goqu.I("m.sender_id").Eq(goqu.I("l.partner_id")),
			goqu.I("m.receiver_id").Eq(userID),
			goqu.I("m.read").IsFalse(),
		)

	query, _, err := a.db.From(latest.As("l")).
		Select(
			goqu.I("l.partner_id"), goqu.I("u.email"), goqu.I("u.role"),
			goqu.I("l.content"), goqu.I("l.created_at"), unread.As("unread"),
		).
		Join(goqu.T("users").As("u"), goqu.On(goqu.I("u.id").Eq(goqu.I("l.partner_id")))).
		ToSQL()
	if err != nil {
		return nil, apperrors.NewInternalError("failed to build query", err)
	}

	rows, err := a.client.DB().QueryContext(ctx, query)
	if err != nil {
		return nil, translate(err, "conversation", "list")
	}
	defer rows.Close()

	partners := []*entities.ConversationPartner{}
	for rows.Next() {
		p := &entities.ConversationPartner{}
		var content string
		if err := rows.Scan(&p.PartnerID, &p.PartnerEmail, &p.PartnerRole, &content, &p.LastMessageAt, &p.UnreadCount); err != nil {
			return nil, apperrors.NewInternalError("failed to scan conversation partner", err)
		}
		p.LastMessage = entities.Preview(content)
		partners = append(partners, p)
	}
	if err := rows.Err(); err != nil {
		return nil, apperrors.NewInternalError("failed to iterate conversation partners", err)
	}

	// DISTINCT ON forces ordering by partner; reorder by recency
	sort.SliceStable(partners, func(i, j int) bool {
		return partners[i].LastMessageAt.After(partners[j].LastMessageAt)
	})
	return partners, nil
}

// CountUnread counts unread messages addressed to userID
func (a *MessageAdapter) CountUnread(ctx context.Context, userID string) (int, error) {
	query, _, err := a.db.Select(goqu.COUNT("*")).From("messages").
		Where(goqu.Ex{"receiver_id": userID, "read": false}).
		ToSQL()
	if err != nil {
		return 0, apperrors.NewInternalError("failed to build query", err)
	}

	var count int
	if err := a.client.DB().QueryRowContext(ctx, query).Scan(&count); err != nil {
		return 0, translate(err, "message", "count")
	}
	return count, nil
}

// LatestReceived returns the newest message addressed to userID
func (a *MessageAdapter) LatestReceived(ctx context.Context, userID string) (*entities.Message, error) {
	query, _, err := a.db.Select(messageColumns...).From("messages").
		Where(goqu.Ex{"receiver_id": userID}).
		Order(goqu.I("created_at").Desc()).
		Limit(1).
		ToSQL()
	if err != nil {
		return nil, apperrors.NewInternalError("failed to build query", err)
	}

	m, err := scanMessage(a.client.DB().QueryRowContext(ctx, query))
	if err != nil {
		return nil, translate(err, "message", "get")
	}
	return m, nil
}
