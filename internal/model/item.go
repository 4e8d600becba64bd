package model

import "time"

// Item - серверная модель ремонтного заказа (job).
type Item struct {
	ID string `gorm:"primaryKey;type:uuid" json:"id" bson:"_id"`

	JobNumber    string `gorm:"not null;uniqueIndex" json:"jobNumber" bson:"jobNumber"`
	CustomerName string `gorm:"not null" json:"customerName" bson:"customerName"`
	PhoneNumber  string `gorm:"not null;index" json:"phoneNumber" bson:"phoneNumber"`
	Brand        string `gorm:"not null" json:"brand" bson:"brand"`
	Status       Status `gorm:"not null;index" json:"status" bson:"status"`

	Issue       string     `json:"issue,omitempty" bson:"issue,omitempty"`
	RepairNotes string     `json:"repairNotes,omitempty" bson:"repairNotes,omitempty"`
	Cost        float64    `gorm:"not null;default:0" json:"cost" bson:"cost"`           // оценочная стоимость
	FinalCost   float64    `gorm:"not null;default:0" json:"finalCost" bson:"finalCost"` // итоговая стоимость
	DueDate     *time.Time `json:"dueDate,omitempty" bson:"dueDate,omitempty"`

	// Отображаемое имя техника на момент создания (денормализовано)
	TechnicianName string `gorm:"index" json:"technicianName" bson:"technicianName"`

	StatusHistory []StatusChange `gorm:"serializer:json;type:text" json:"statusHistory" bson:"statusHistory"`

	IsDeleted bool      `gorm:"not null;default:false;index" json:"isDeleted" bson:"isDeleted"`
	Metadata  *Metadata `gorm:"serializer:json;type:text" json:"metadata,omitempty" bson:"metadata,omitempty"`

	CreatedAt time.Time `gorm:"autoCreateTime;index" json:"createdAt" bson:"createdAt"`
	UpdatedAt time.Time `gorm:"autoUpdateTime" json:"updatedAt" bson:"updatedAt"`
}

// StatusChange - запись в истории статусов.
type StatusChange struct {
	Status    Status    `json:"status" bson:"status"`
	Note      string    `json:"note,omitempty" bson:"note,omitempty"`
	ChangedAt time.Time `json:"changedAt" bson:"changedAt"`
}

// Metadata - аудит создания заказа. Отдаётся только администратору.
type Metadata struct {
	IP            string    `json:"ip" bson:"ip"`
	UserAgent     string    `json:"userAgent" bson:"userAgent"`
	Referrer      string    `json:"referrer,omitempty" bson:"referrer,omitempty"`
	Browser       string    `json:"browser,omitempty" bson:"browser,omitempty"`
	OS            string    `json:"os,omitempty" bson:"os,omitempty"`
	Device        string    `json:"device,omitempty" bson:"device,omitempty"`
	CreatedByRole Role      `json:"createdByRole" bson:"createdByRole"`
	CreatedAt     time.Time `json:"createdAt" bson:"createdAt"`
}

// LastStatusChange возвращает последнюю запись истории или nil.
func (it *Item) LastStatusChange() *StatusChange {
	if len(it.StatusHistory) == 0 {
		return nil
	}
	return &it.StatusHistory[len(it.StatusHistory)-1]
}
