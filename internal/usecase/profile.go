package usecase

import (
	"context"
	"errors"
	"log/slog"
	"strings"
	"sync"

	"meingenie/internal/domain"
)

// ProfileAPI is the backend contract for the profile page.
type ProfileAPI interface {
	GetProfile(ctx context.Context) (domain.UserProfile, error)
	UpdateProfile(ctx context.Context, patch domain.FlatProfile) (domain.UserProfile, error)
	ListDocuments(ctx context.Context) ([]domain.Document, error)
	RenameDocument(ctx context.Context, id, name string) error
	DeleteDocument(ctx context.Context, id string) error
}

// ProfileEditor holds the loaded profile, the working copy while editing and
// the user's documents.
type ProfileEditor struct {
	api      ProfileAPI
	confirm  Confirmer
	notifier Notifier
	logger   *slog.Logger

	mu        sync.Mutex
	profile   domain.UserProfile
	draft     domain.UserProfile
	loaded    bool
	editing   bool
	pending   string
	deleted   bool
	documents []domain.Document
	saving    bool
}

type ProfileOption func(*ProfileEditor)

func WithProfileNotifier(n Notifier) ProfileOption {
	return func(p *ProfileEditor) { p.notifier = n }
}

func WithProfileLogger(l *slog.Logger) ProfileOption {
	return func(p *ProfileEditor) { p.logger = l }
}

func NewProfileEditor(api ProfileAPI, confirm Confirmer, opts ...ProfileOption) (*ProfileEditor, error) {
	if api == nil {
		return nil, errors.New("usecase: profile api must not be nil")
	}
	if confirm == nil {
		return nil, errors.New("usecase: confirmer must not be nil")
	}
	p := &ProfileEditor{api: api, confirm: confirm, logger: slog.Default()}
	for _, opt := range opts {
		opt(p)
	}
	p.notifier = notifierOrNop(p.notifier)
	return p, nil
}

// Load fetches the profile, then the document list. A failed document fetch
// is announced on its own and leaves the list empty; the profile stays usable.
func (p *ProfileEditor) Load(ctx context.Context) error {
	profile, err := p.api.GetProfile(ctx)
	if err != nil {
		ue := classify(ErrorProfileLoadFailed, "get_profile", err)
		notifyError(p.notifier, ue, "Your profile could not be loaded.")
		return ue
	}

	p.mu.Lock()
	p.profile = profile
	p.loaded = true
	p.editing = false
	p.pending = ""
	p.deleted = false
	p.mu.Unlock()

	if err := p.LoadDocuments(ctx); err != nil {
		p.logger.Warn("documents unavailable", "err", err)
	}
	return nil
}

// LoadDocuments refreshes the document list. On failure the list is emptied.
func (p *ProfileEditor) LoadDocuments(ctx context.Context) error {
	docs, err := p.api.ListDocuments(ctx)
	if err != nil {
		p.mu.Lock()
		p.documents = nil
		p.mu.Unlock()
		ue := classify(ErrorDocumentFailed, "list_documents", err)
		notifyError(p.notifier, ue, "Your documents could not be loaded.")
		return ue
	}

	p.mu.Lock()
	defer p.mu.Unlock()
	p.documents = append([]domain.Document(nil), docs...)
	return nil
}

// Profile returns the working copy while editing, otherwise the saved profile.
func (p *ProfileEditor) Profile() domain.UserProfile {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.editing {
		return p.draft
	}
	return p.profile
}

func (p *ProfileEditor) Editing() bool {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.editing
}

// BeginEdit copies the loaded profile into a working copy. Without a loaded
// profile there is nothing to edit and a save would blank the stored fields.
func (p *ProfileEditor) BeginEdit() error {
	p.mu.Lock()
	defer p.mu.Unlock()
	if !p.loaded {
		return newError(ErrorInvalidState, "not_loaded", nil)
	}
	if !p.editing {
		p.draft = p.profile
		p.editing = true
	}
	return nil
}

// Edit applies fn to the working copy. It fails outside edit mode.
func (p *ProfileEditor) Edit(fn func(*domain.UserProfile)) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	if !p.editing {
		return newError(ErrorInvalidState, "not_editing", nil)
	}
	fn(&p.draft)
	return nil
}

// CancelEdit drops the working copy and any image change.
func (p *ProfileEditor) CancelEdit() {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.editing = false
	p.draft = domain.UserProfile{}
	p.pending = ""
	p.deleted = false
}

// SetPendingImage stages a new image. ref is whatever the backend accepts in
// profile_image (a data URL in the CLI).
func (p *ProfileEditor) SetPendingImage(ref string) error {
	ref = strings.TrimSpace(ref)
	if ref == "" {
		return validationError(map[string]string{"profileImage": "Please choose an image."})
	}
	p.mu.Lock()
	defer p.mu.Unlock()
	if !p.editing {
		return newError(ErrorInvalidState, "not_editing", nil)
	}
	p.pending = ref
	p.deleted = false
	return nil
}

// DeleteImage marks the image for removal on the next save.
func (p *ProfileEditor) DeleteImage() error {
	p.mu.Lock()
	defer p.mu.Unlock()
	if !p.editing {
		return newError(ErrorInvalidState, "not_editing", nil)
	}
	p.pending = ""
	p.deleted = true
	return nil
}

// DisplayImage resolves the image to show: pending preview, then deletion
// placeholder, then the stored image, then generated initials.
func (p *ProfileEditor) DisplayImage() domain.ImageSource {
	p.mu.Lock()
	defer p.mu.Unlock()
	current := p.profile
	if p.editing {
		current = p.draft
	}
	switch {
	case p.pending != "":
		return domain.ImageSource{Kind: domain.ImagePendingPreview, URL: p.pending}
	case p.deleted:
		return domain.ImageSource{Kind: domain.ImageDeletedPlaceholder}
	case current.ProfileImage != "":
		return domain.ImageSource{Kind: domain.ImageServer, URL: current.ProfileImage}
	default:
		return domain.ImageSource{Kind: domain.ImageGenerated, Initials: current.Initials()}
	}
}

// Save sends the working copy as one partial update and leaves edit mode.
func (p *ProfileEditor) Save(ctx context.Context) error {
	p.mu.Lock()
	if !p.loaded {
		p.mu.Unlock()
		return newError(ErrorInvalidState, "not_loaded", nil)
	}
	if !p.editing {
		p.mu.Unlock()
		return newError(ErrorInvalidState, "not_editing", nil)
	}
	if p.saving {
		p.mu.Unlock()
		return newError(ErrorBusy, "save_in_flight", nil)
	}
	patch := p.draft.Flatten()
	switch {
	case p.pending != "":
		img := p.pending
		patch.ProfileImage = &img
	case p.deleted:
		empty := ""
		patch.ProfileImage = &empty
	}
	p.saving = true
	p.mu.Unlock()

	updated, err := p.api.UpdateProfile(ctx, patch)

	p.mu.Lock()
	p.saving = false
	if err != nil {
		p.mu.Unlock()
		ue := classify(ErrorProfileUpdateFailed, "update_profile", err)
		if ue.Code == ErrorProfileUpdateFailed {
			_, ue.Fields = serverDetails(err)
		}
		p.logger.Warn("profile update failed", "code", ue.Code, "err", err)
		notifyError(p.notifier, ue, "Your changes could not be saved.")
		return ue
	}
	p.profile = updated
	p.draft = domain.UserProfile{}
	p.editing = false
	p.pending = ""
	p.deleted = false
	p.mu.Unlock()

	p.notifier.Notify(Notice{Level: NoticeSuccess, Text: "Profile saved."})
	return nil
}

// Documents returns a copy of the document list.
func (p *ProfileEditor) Documents() []domain.Document {
	p.mu.Lock()
	defer p.mu.Unlock()
	return append([]domain.Document(nil), p.documents...)
}

// RenameDocument renames on the server, then locally.
func (p *ProfileEditor) RenameDocument(ctx context.Context, id, name string) error {
	name = strings.TrimSpace(name)
	if name == "" {
		return validationError(map[string]string{"name": "Please enter a name."})
	}
	if _, ok := p.documentIndex(id); !ok {
		return newError(ErrorDocumentFailed, "unknown_document", nil)
	}
	if err := p.api.RenameDocument(ctx, id, name); err != nil {
		ue := classify(ErrorDocumentFailed, "rename_document", err)
		notifyError(p.notifier, ue, "The document could not be renamed.")
		return ue
	}
	p.mu.Lock()
	defer p.mu.Unlock()
	if i, ok := p.documentIndexLocked(id); ok {
		p.documents[i].Name = name
	}
	return nil
}

// DeleteDocument asks for confirmation, deletes on the server and removes
// the local item only after the server accepted. It reports whether the
// document was deleted.
func (p *ProfileEditor) DeleteDocument(ctx context.Context, id string) (bool, error) {
	p.mu.Lock()
	i, ok := p.documentIndexLocked(id)
	var name string
	if ok {
		name = p.documents[i].Name
	}
	p.mu.Unlock()
	if !ok {
		return false, newError(ErrorDocumentFailed, "unknown_document", nil)
	}

	if !p.confirm.Confirm(ctx, "Delete \""+name+"\"? This cannot be undone.") {
		return false, nil
	}
	if err := p.api.DeleteDocument(ctx, id); err != nil {
		ue := classify(ErrorDocumentFailed, "delete_document", err)
		notifyError(p.notifier, ue, "The document could not be deleted.")
		return false, ue
	}

	p.mu.Lock()
	defer p.mu.Unlock()
	if i, ok := p.documentIndexLocked(id); ok {
		p.documents = append(p.documents[:i], p.documents[i+1:]...)
	}
	return true, nil
}

func (p *ProfileEditor) documentIndex(id string) (int, bool) {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.documentIndexLocked(id)
}

func (p *ProfileEditor) documentIndexLocked(id string) (int, bool) {
	for i, d := range p.documents {
		if d.ID == id {
			return i, true
		}
	}
	return 0, false
}
