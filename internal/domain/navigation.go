package domain

// Page identifies a top-level screen of the assistant.
type Page string

const (
	PageAuth          Page = "auth"
	PageHub           Page = "hub"
	PageDashboard     Page = "dashboard"
	PageForminoUpload Page = "formino-upload"
	PageFormChat      Page = "form-chat"
	PageFormReview    Page = "form-review"
	PageTermino       Page = "termino"
	PageProfile       Page = "profile"
)

// Destination is a navigation target. PDFURL and FileName are only
// populated for PageFormReview.
type Destination struct {
	Page     Page
	PDFURL   string
	FileName string
}
