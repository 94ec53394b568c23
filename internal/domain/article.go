package domain

import "time"

// ArticleStatus tracks the publishing state of a knowledge article.
type ArticleStatus string

const (
	ArticleStatusDraft     ArticleStatus = "DRAFT"
	ArticleStatusPublished ArticleStatus = "PUBLISHED"
)

// KnowledgeArticle captures what was learned resolving a ticket. At most one per ticket.
type KnowledgeArticle struct {
	ID        string
	TicketID  string
	Title     string
	Content   string
	Status    ArticleStatus
	CreatedBy string
	CreatedAt time.Time
}
