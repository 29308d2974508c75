package models

import (
	"github.com/google/uuid"
	"gorm.io/gorm"
)

// BeforeCreate hooks assign ids app-side when the caller did not. Postgres
// would fill them via gen_random_uuid(), but the sqlite test harness has no
// equivalent default.

func (u *User) BeforeCreate(*gorm.DB) error            { return ensureID(&u.ID) }
func (c *Campus) BeforeCreate(*gorm.DB) error          { return ensureID(&c.ID) }
func (c *Category) BeforeCreate(*gorm.DB) error        { return ensureID(&c.ID) }
func (t *Tefa) BeforeCreate(*gorm.DB) error            { return ensureID(&t.ID) }
func (m *TefaMembership) BeforeCreate(*gorm.DB) error  { return ensureID(&m.ID) }
func (p *Product) BeforeCreate(*gorm.DB) error         { return ensureID(&p.ID) }
func (r *PurchaseRequest) BeforeCreate(*gorm.DB) error { return ensureID(&r.ID) }
func (a *Auction) BeforeCreate(*gorm.DB) error         { return ensureID(&a.ID) }
func (b *Bid) BeforeCreate(*gorm.DB) error             { return ensureID(&b.ID) }
func (c *Comment) BeforeCreate(*gorm.DB) error         { return ensureID(&c.ID) }
func (n *Notification) BeforeCreate(*gorm.DB) error    { return ensureID(&n.ID) }
func (e *OutboxEvent) BeforeCreate(*gorm.DB) error     { return ensureID(&e.ID) }

func ensureID(id *uuid.UUID) error {
	if *id == uuid.Nil {
		*id = uuid.New()
	}
	return nil
}
