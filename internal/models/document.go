package models

import (
	"time"

	"github.com/pgvector/pgvector-go"
)

// EmbeddingDims 向量列的固定维度，与mxbai-embed-large输出一致。
// 修改时必须同步修改migrations中的vector(N)定义。
const EmbeddingDims = 1024

// Document 一次上传的文档，归属于唯一的用户
type Document struct {
	DocumentID uint      `gorm:"primaryKey;column:document_id" json:"document_id"`
	Filename   string    `gorm:"size:500;not null;uniqueIndex:idx_documents_filename_user" json:"filename"`
	UserID     string    `gorm:"size:100;not null;uniqueIndex:idx_documents_filename_user;index" json:"user_id"`
	UploadDate time.Time `gorm:"column:upload_date;autoCreateTime" json:"upload_date"`

	Chunks []DocumentChunk `gorm:"foreignKey:DocumentID;constraint:OnDelete:CASCADE" json:"-"`
}

func (Document) TableName() string {
	return "documents"
}

// DocumentChunk 文档的一个连续片段及其向量
type DocumentChunk struct {
	ChunkID    uint            `gorm:"primaryKey;column:chunk_id" json:"chunk_id"`
	DocumentID uint            `gorm:"column:document_id;not null;index" json:"document_id"`
	Content    string          `gorm:"type:text;not null" json:"content"`
	ChunkIndex int             `gorm:"column:chunk_index;not null" json:"chunk_index"`
	Embedding  pgvector.Vector `gorm:"type:vector(1024)" json:"-"`
}

func (DocumentChunk) TableName() string {
	return "document_chunks"
}
