package storage

import (
	"encoding/json"
	"fmt"
	"time"

	bolt "go.etcd.io/bbolt"

	"threadview/models"
)

var stagedBucket = []byte("StagedAttachments")

// StagedStore persists attachments a user has added to a compose
// session but not yet uploaded. Entries survive a process restart so a
// half-written reply does not lose its files. One nested bucket per
// owner.
type StagedStore struct {
	db *bolt.DB
}

// stagedRecord is the stored form; models.StagedAttachment excludes
// content bytes from JSON, the store needs them.
type stagedRecord struct {
	models.AttachmentDescriptor
	Content []byte `json:"content"`
}

// NewStagedStore opens (creating if needed) the staged attachment
// database at path.
func NewStagedStore(path string) (*StagedStore, error) {
	db, err := bolt.Open(path, 0600, &bolt.Options{Timeout: 1 * time.Second})
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %v", err)
	}

	err = db.Update(func(tx *bolt.Tx) error {
		_, err := tx.CreateBucketIfNotExists(stagedBucket)
		return err
	})
	if err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to create bucket: %v", err)
	}
	return &StagedStore{db: db}, nil
}

// Close closes the database.
func (s *StagedStore) Close() error {
	return s.db.Close()
}

// Put stages one attachment for an owner.
func (s *StagedStore) Put(owner string, att models.StagedAttachment) error {
	return s.db.Update(func(tx *bolt.Tx) error {
		b, err := tx.Bucket(stagedBucket).CreateBucketIfNotExists([]byte(owner))
		if err != nil {
			return err
		}
		encoded, err := json.Marshal(stagedRecord{
			AttachmentDescriptor: att.AttachmentDescriptor,
			Content:              att.Content,
		})
		if err != nil {
			return fmt.Errorf("failed to encode attachment: %v", err)
		}
		return b.Put([]byte(att.ID), encoded)
	})
}

// List returns an owner's staged attachments.
func (s *StagedStore) List(owner string) ([]models.StagedAttachment, error) {
	var out []models.StagedAttachment
	err := s.db.View(func(tx *bolt.Tx) error {
		b := tx.Bucket(stagedBucket).Bucket([]byte(owner))
		if b == nil {
			return nil
		}
		return b.ForEach(func(k, v []byte) error {
			var rec stagedRecord
			if err := json.Unmarshal(v, &rec); err != nil {
				return fmt.Errorf("failed to decode attachment %s: %v", k, err)
			}
			out = append(out, models.StagedAttachment{
				AttachmentDescriptor: rec.AttachmentDescriptor,
				Content:              rec.Content,
			})
			return nil
		})
	})
	if err != nil {
		return nil, err
	}
	return out, nil
}

// Count returns how many attachments an owner has staged.
func (s *StagedStore) Count(owner string) (int, error) {
	count := 0
	err := s.db.View(func(tx *bolt.Tx) error {
		b := tx.Bucket(stagedBucket).Bucket([]byte(owner))
		if b == nil {
			return nil
		}
		count = b.Stats().KeyN
		return nil
	})
	return count, err
}

// Delete removes one staged attachment.
func (s *StagedStore) Delete(owner, id string) error {
	return s.db.Update(func(tx *bolt.Tx) error {
		b := tx.Bucket(stagedBucket).Bucket([]byte(owner))
		if b == nil {
			return nil
		}
		return b.Delete([]byte(id))
	})
}

// Clear removes all of an owner's staged attachments.
func (s *StagedStore) Clear(owner string) error {
	return s.db.Update(func(tx *bolt.Tx) error {
		root := tx.Bucket(stagedBucket)
		if root.Bucket([]byte(owner)) == nil {
			return nil
		}
		return root.DeleteBucket([]byte(owner))
	})
}
