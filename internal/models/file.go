package models

import (
	"time"

	"go.mongodb.org/mongo-driver/bson/primitive"
)

// ProjectFile is a deliverable uploaded to a project.
type ProjectFile struct {
	ID         primitive.ObjectID `bson:"_id,omitempty" json:"id"`
	ProjectID  primitive.ObjectID `bson:"project_id" json:"projectId"`
	UploaderID primitive.ObjectID `bson:"uploader_id" json:"uploaderId"`
	Name       string             `bson:"name" json:"name"`
	URL        string             `bson:"url" json:"url"`
	Size       int64              `bson:"size" json:"size"`
	UploadedAt time.Time          `bson:"uploaded_at" json:"uploadedAt"`
}

func (f ProjectFile) Key() primitive.ObjectID { return f.ID }
