package models

import (
	"encoding/json"
	"time"

	"github.com/google/uuid"
	"gorm.io/datatypes"
	"gorm.io/gorm"
)

// Assignment is a frontend project brief together with its grading criteria and generated test script.
type Assignment struct {
	ID        uuid.UUID      `gorm:"type:uuid;primaryKey" json:"id"`
	UserID    uuid.UUID      `gorm:"type:uuid;not null" json:"user_id"`
	Title     string         `gorm:"size:255;not null" json:"title"`
	Content   string         `gorm:"type:text;not null" json:"content"`
	SubTasks  datatypes.JSON `gorm:"type:json" json:"sub_tasks"`
	AIScript  string         `gorm:"column:ai_script;type:text" json:"ai_script"`
	CreatedAt time.Time      `json:"created_at"`
	UpdatedAt time.Time      `json:"updated_at"`
}

// BeforeCreate assigns a random identifier when none was provided.
func (a *Assignment) BeforeCreate(_ *gorm.DB) error {
	if a.ID == uuid.Nil {
		a.ID = uuid.New()
	}
	return nil
}

// SetSubTasks serializes the ordered criterion names into the JSON column.
func (a *Assignment) SetSubTasks(subTasks []string) {
	if subTasks == nil {
		subTasks = []string{}
	}
	data, err := json.Marshal(subTasks)
	if err != nil {
		a.SubTasks = datatypes.JSON([]byte("[]"))
		return
	}
	a.SubTasks = datatypes.JSON(data)
}

// SubTaskList deserializes the stored criterion names, preserving their order.
func (a Assignment) SubTaskList() []string {
	if len(a.SubTasks) == 0 {
		return []string{}
	}

	var subTasks []string
	if err := json.Unmarshal(a.SubTasks, &subTasks); err != nil || subTasks == nil {
		return []string{}
	}

	return subTasks
}
