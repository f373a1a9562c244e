package models

import "go.mongodb.org/mongo-driver/bson/primitive"

// Entity is implemented by every document the store persists by ObjectID.
type Entity interface {
	GetID() primitive.ObjectID
	SetID(primitive.ObjectID)
}

func (u *User) GetID() primitive.ObjectID { return u.ID }
func (u *User) SetID(id primitive.ObjectID) { u.ID = id }
func (c *Community) GetID() primitive.ObjectID { return c.ID }
func (c *Community) SetID(id primitive.ObjectID) { c.ID = id }
func (r *Route) GetID() primitive.ObjectID { return r.ID }
func (r *Route) SetID(id primitive.ObjectID) { r.ID = id }
func (p *Pickup) GetID() primitive.ObjectID { return p.ID }
func (p *Pickup) SetID(id primitive.ObjectID) { p.ID = id }
func (i *Issue) GetID() primitive.ObjectID { return i.ID }
func (i *Issue) SetID(id primitive.ObjectID) { i.ID = id }
func (n *Notification) GetID() primitive.ObjectID { return n.ID }
func (n *Notification) SetID(id primitive.ObjectID) { n.ID = id }
