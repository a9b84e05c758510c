package view

import (
	"context"
	"fmt"

	"threadview/models"
)

// AttachmentAPI uploads one staged attachment to the mail API.
type AttachmentAPI interface {
	UploadAttachment(ctx context.Context, staged models.StagedAttachment) (models.AttachmentDescriptor, error)
}

// StagedLister reads an owner's staged attachments.
type StagedLister interface {
	List(owner string) ([]models.StagedAttachment, error)
}

// StagedUploader implements the pipeline's all-or-nothing upload step
// over the staged store and the mail API. Staged entries are never
// removed here; the composer clears them only after the whole send
// succeeds.
type StagedUploader struct {
	store StagedLister
	api   AttachmentAPI
	owner string
}

// NewStagedUploader creates an uploader for one compose session.
func NewStagedUploader(store StagedLister, api AttachmentAPI, owner string) *StagedUploader {
	return &StagedUploader{store: store, api: api, owner: owner}
}

// UploadAllStaged uploads every staged attachment and returns their
// finalized descriptors. The first failure aborts the whole batch.
func (u *StagedUploader) UploadAllStaged(ctx context.Context) ([]models.AttachmentDescriptor, error) {
	staged, err := u.store.List(u.owner)
	if err != nil {
		return nil, fmt.Errorf("failed to read staged attachments: %w", err)
	}

	descriptors := make([]models.AttachmentDescriptor, 0, len(staged))
	for _, att := range staged {
		desc, err := u.api.UploadAttachment(ctx, att)
		if err != nil {
			return nil, fmt.Errorf("upload of %q failed: %w", att.Filename, err)
		}
		descriptors = append(descriptors, desc)
	}
	return descriptors, nil
}
