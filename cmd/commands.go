package main

import (
	"context"
	"encoding/base64"
	"errors"
	"flag"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"os"
	"strings"
	"time"

	xterm "golang.org/x/term"

	"meingenie/handler"
	appconfig "meingenie/internal/config"
	"meingenie/internal/audio"
	"meingenie/internal/credentials"
	"meingenie/internal/domain"
	"meingenie/internal/integrations/genie"
	"meingenie/internal/integrations/oauth"
	"meingenie/internal/tutorial"
	"meingenie/internal/usecase"
)

type app struct {
	cfg    appconfig.Config
	logger *slog.Logger
	term   *handler.Terminal
	creds  *credentials.Provider
	api    *genie.Client
}

func (a *app) dispatch(ctx context.Context, cmd string, args []string) error {
	switch cmd {
	case "login":
		return a.login(ctx, args)
	case "register":
		return a.register(ctx)
	case "reset-password":
		return a.resetPassword(ctx, args)
	case "logout":
		return a.logout(ctx)
	case "whoami":
		return a.whoami()
	case "hub":
		return a.hub(ctx)
	case "form":
		return a.form(ctx, args)
	case "profile":
		return a.profile(ctx, args)
	case "docs":
		return a.docs(ctx, args)
	case "transcribe":
		return a.transcribe(ctx, args)
	case "tutorial":
		return a.tutorial()
	default:
		return fmt.Errorf("%w: unknown command %q", errUsage, cmd)
	}
}

func parseFlags(fs *flag.FlagSet, args []string) error {
	fs.SetOutput(io.Discard)
	if err := fs.Parse(args); err != nil {
		return fmt.Errorf("%w: %s: %v", errUsage, fs.Name(), err)
	}
	return nil
}

func (a *app) requireSignedIn() error {
	if a.creds.SignedIn() {
		return nil
	}
	a.term.Println("You are not signed in. Run `meingenie login` first.")
	return &usecase.Error{Code: usecase.ErrorAuth, Reason: "signed_out"}
}

// readSecret reads without echo on a terminal and falls back to a plain line
// when stdin is piped.
func (a *app) readSecret(prompt string) (string, error) {
	fd := int(os.Stdin.Fd())
	if !xterm.IsTerminal(fd) {
		return a.term.ReadLine(prompt)
	}
	a.term.Printf("%s", prompt)
	b, err := xterm.ReadPassword(fd)
	a.term.Println()
	if err != nil {
		return "", fmt.Errorf("read password: %w", err)
	}
	return string(b), nil
}

// ---- Account ----

func (a *app) authenticator() (*usecase.Authenticator, error) {
	return usecase.NewAuthenticator(a.api, a.creds,
		usecase.WithAuthNotifier(a.term),
		usecase.WithAuthLogger(a.logger),
		usecase.WithRegisterTimeout(a.cfg.RegisterTimeout),
		usecase.WithOnAuthenticated(func(domain.TokenPair) { a.greet() }),
	)
}

func (a *app) greet() {
	id, err := a.creds.Inspect()
	if err != nil || id.Email == "" {
		a.term.Println("Signed in.")
		return
	}
	a.term.Printf("Signed in as %s.\n", id.Email)
}

func (a *app) login(ctx context.Context, args []string) error {
	fs := flag.NewFlagSet("login", flag.ContinueOnError)
	google := fs.Bool("google", false, "sign in with Google")
	email := fs.String("email", "", "account email")
	if err := parseFlags(fs, args); err != nil {
		return err
	}
	auth, err := a.authenticator()
	if err != nil {
		return err
	}

	if *google {
		if a.cfg.GoogleClientID == "" {
			return errors.New("GENIE_GOOGLE_CLIENT_ID is not configured")
		}
		flow, err := oauth.NewFlow(a.cfg.GoogleClientID, a.cfg.OAuthAddr,
			oauth.WithLogger(a.logger),
			oauth.WithOpener(func(_ context.Context, consentURL string) error {
				a.term.Printf("Open this link in your browser to continue:\n  %s\n", consentURL)
				return nil
			}),
		)
		if err != nil {
			return err
		}
		code, err := flow.AuthCode(ctx)
		if err != nil {
			return err
		}
		return auth.LoginWithGoogle(ctx, code)
	}

	if *email == "" {
		if *email, err = a.term.ReadLine("Email: "); err != nil {
			return err
		}
	}
	password, err := a.readSecret("Password: ")
	if err != nil {
		return err
	}
	return auth.Login(ctx, *email, password)
}

func (a *app) register(ctx context.Context) error {
	auth, err := a.authenticator()
	if err != nil {
		return err
	}
	var in usecase.RegisterInput
	if in.FullName, err = a.term.ReadLine("Full name: "); err != nil {
		return err
	}
	if in.Email, err = a.term.ReadLine("Email: "); err != nil {
		return err
	}
	if in.Password, err = a.readSecret("Password: "); err != nil {
		return err
	}
	if in.ConfirmPassword, err = a.readSecret("Repeat password: "); err != nil {
		return err
	}
	return auth.Register(ctx, in)
}

func (a *app) resetPassword(ctx context.Context, args []string) error {
	fs := flag.NewFlagSet("reset-password", flag.ContinueOnError)
	email := fs.String("email", "", "account email")
	if err := parseFlags(fs, args); err != nil {
		return err
	}
	auth, err := a.authenticator()
	if err != nil {
		return err
	}
	if *email == "" {
		if *email, err = a.term.ReadLine("Email: "); err != nil {
			return err
		}
	}
	return auth.RequestPasswordReset(ctx, *email)
}

func (a *app) logout(ctx context.Context) error {
	auth, err := a.authenticator()
	if err != nil {
		return err
	}
	if err := auth.Logout(ctx); err != nil {
		return err
	}
	a.term.Println("Signed out.")
	return nil
}

func (a *app) whoami() error {
	id, err := a.creds.Inspect()
	if errors.Is(err, credentials.ErrSignedOut) {
		a.term.Println("Not signed in.")
		return nil
	}
	if err != nil {
		return err
	}
	a.term.Printf("email:   %s\nsubject: %s\nuser id: %s\n", id.Email, id.Subject, id.UserID)
	if !id.ExpiresAt.IsZero() {
		note := ""
		if id.Expired(time.Now()) {
			note = " (expired, sign in again)"
		}
		a.term.Printf("expires: %s%s\n", id.ExpiresAt.Local().Format(time.RFC1123), note)
	}
	return nil
}

// ---- Services ----

var nextStep = map[domain.Page]string{
	domain.PageForminoUpload: "meingenie form --document <id> --description \"...\"",
	domain.PageTermino:       "Termino bookings are made in the Mein Genie app.",
	domain.PageDashboard:     "meingenie docs list",
	domain.PageProfile:       "meingenie profile",
}

func (a *app) hub(ctx context.Context) error {
	h, err := usecase.NewHub(a.term)
	if err != nil {
		return err
	}
	for i, c := range h.Choices() {
		a.term.Printf("%d) %-10s %s\n", i+1, c.Title, c.Blurb)
	}
	line, err := a.term.ReadLine("Choose: ")
	if err != nil {
		return err
	}
	c, err := h.Choose(ctx, line)
	if err != nil {
		return err
	}
	a.term.Printf("Next: %s\n", nextStep[c.Page])
	return nil
}

// audioSource replays path when given, otherwise records with the configured
// command. A nil Source means voice input is unavailable.
func (a *app) audioSource(path string) audio.Source {
	if path != "" {
		return audio.FileSource{Path: path}
	}
	src, err := audio.NewCommandSource(a.cfg.VoiceCommand, "audio/wav")
	if err != nil {
		a.logger.Warn("voice input disabled", "err", err)
		return nil
	}
	return src
}

func (a *app) form(ctx context.Context, args []string) error {
	fs := flag.NewFlagSet("form", flag.ContinueOnError)
	description := fs.String("description", "", "what the form is for")
	document := fs.String("document", "", "id of the uploaded form document")
	audioFile := fs.String("audio-file", "", "replay this recording instead of using the microphone")
	lang := fs.String("lang", a.cfg.VoiceLanguage, "transcription language")
	if err := parseFlags(fs, args); err != nil {
		return err
	}
	if strings.TrimSpace(*document) == "" {
		return fmt.Errorf("%w: form: --document is required", errUsage)
	}
	if err := a.requireSignedIn(); err != nil {
		return err
	}

	chat, err := usecase.NewFormChat(a.api, a.term,
		usecase.WithFormChatNotifier(a.term),
		usecase.WithFormChatLogger(a.logger),
	)
	if err != nil {
		return err
	}
	voice, err := usecase.NewVoiceCapture(a.audioSource(*audioFile), a.api, chat,
		usecase.WithVoiceNotifier(a.term),
		usecase.WithVoiceLogger(a.logger),
		usecase.WithVoiceLanguage(*lang),
	)
	if err != nil {
		return err
	}
	defer func() { _ = voice.Close() }()

	repl, err := handler.NewChatREPL(a.term, chat, voice)
	if err != nil {
		return err
	}
	if strings.TrimSpace(*description) == "" {
		if *description, err = a.term.ReadLine("Describe the form you need: "); err != nil {
			return err
		}
	}
	return repl.Run(ctx, *description, *document)
}

func (a *app) transcribe(ctx context.Context, args []string) error {
	fs := flag.NewFlagSet("transcribe", flag.ContinueOnError)
	file := fs.String("file", "", "recording to transcribe")
	lang := fs.String("lang", a.cfg.VoiceLanguage, "transcription language")
	if err := parseFlags(fs, args); err != nil {
		return err
	}
	if *file == "" {
		return fmt.Errorf("%w: transcribe: --file is required", errUsage)
	}
	if err := a.requireSignedIn(); err != nil {
		return err
	}

	stream, err := audio.FileSource{Path: *file}.Open(ctx)
	if err != nil {
		return err
	}
	rec := audio.Record(stream, 0)
	select {
	case <-rec.Done():
	case <-ctx.Done():
		rec.Discard()
		return ctx.Err()
	}
	clip, err := rec.Stop()
	if err != nil {
		return err
	}
	text, err := a.api.Transcribe(ctx, clip, strings.ToLower(*lang))
	if err != nil {
		return fmt.Errorf("transcribe: %w", err)
	}
	a.term.Println(strings.TrimSpace(text))
	return nil
}

func (a *app) tutorial() error {
	p := tutorial.NewPager(nil)
	for {
		page, _ := p.Current()
		a.term.Printf("\n(%d/%d) %s\n%s\n", p.Index()+1, p.Len(), page.Title, page.Body)
		line, err := a.term.ReadLine("[n]ext, [p]revious, [q]uit: ")
		if errors.Is(err, io.EOF) {
			return nil
		}
		if err != nil {
			return err
		}
		switch strings.ToLower(line) {
		case "q", "quit":
			return nil
		case "p", "prev":
			p.Prev()
		default:
			if !p.Next() {
				return nil
			}
		}
	}
}

// ---- Profile and documents ----

func (a *app) profileEditor() (*usecase.ProfileEditor, error) {
	return usecase.NewProfileEditor(a.api, a.term,
		usecase.WithProfileNotifier(a.term),
		usecase.WithProfileLogger(a.logger),
	)
}

func (a *app) profile(ctx context.Context, args []string) error {
	fs := flag.NewFlagSet("profile", flag.ContinueOnError)
	edit := fs.Bool("edit", false, "edit profile fields")
	image := fs.String("image", "", "new profile image file")
	deleteImage := fs.Bool("delete-image", false, "remove the profile image")
	if err := parseFlags(fs, args); err != nil {
		return err
	}
	if err := a.requireSignedIn(); err != nil {
		return err
	}
	editor, err := a.profileEditor()
	if err != nil {
		return err
	}
	if err := editor.Load(ctx); err != nil {
		return err
	}
	if !*edit && *image == "" && !*deleteImage {
		a.printProfile(editor)
		return nil
	}

	if err := editor.BeginEdit(); err != nil {
		return err
	}
	if *edit {
		if err := a.editFields(editor); err != nil {
			editor.CancelEdit()
			return err
		}
	}
	if *image != "" {
		ref, err := imageDataURL(*image)
		if err != nil {
			editor.CancelEdit()
			return err
		}
		if err := editor.SetPendingImage(ref); err != nil {
			editor.CancelEdit()
			return err
		}
	}
	if *deleteImage {
		if err := editor.DeleteImage(); err != nil {
			editor.CancelEdit()
			return err
		}
	}

	a.printProfile(editor)
	if !a.term.Confirm(ctx, "Save these changes?") {
		editor.CancelEdit()
		a.term.Println("Changes discarded.")
		return nil
	}
	return editor.Save(ctx)
}

type profileField struct {
	label string
	get   func(domain.UserProfile) string
	set   func(*domain.UserProfile, string)
}

var profileFields = []profileField{
	{"First name", func(p domain.UserProfile) string { return p.Personal.FirstName }, func(p *domain.UserProfile, v string) { p.Personal.FirstName = v }},
	{"Last name", func(p domain.UserProfile) string { return p.Personal.LastName }, func(p *domain.UserProfile, v string) { p.Personal.LastName = v }},
	{"Date of birth", func(p domain.UserProfile) string { return p.Personal.DateOfBirth }, func(p *domain.UserProfile, v string) { p.Personal.DateOfBirth = v }},
	{"Gender", func(p domain.UserProfile) string { return p.Personal.Gender }, func(p *domain.UserProfile, v string) { p.Personal.Gender = v }},
	{"Nationality", func(p domain.UserProfile) string { return p.Personal.Nationality }, func(p *domain.UserProfile, v string) { p.Personal.Nationality = v }},
	{"Email", func(p domain.UserProfile) string { return p.Contact.Email }, func(p *domain.UserProfile, v string) { p.Contact.Email = v }},
	{"Phone", func(p domain.UserProfile) string { return p.Contact.Phone }, func(p *domain.UserProfile, v string) { p.Contact.Phone = v }},
	{"Street", func(p domain.UserProfile) string { return p.Address.Street }, func(p *domain.UserProfile, v string) { p.Address.Street = v }},
	{"City", func(p domain.UserProfile) string { return p.Address.City }, func(p *domain.UserProfile, v string) { p.Address.City = v }},
	{"Postal code", func(p domain.UserProfile) string { return p.Address.PostalCode }, func(p *domain.UserProfile, v string) { p.Address.PostalCode = v }},
	{"Country", func(p domain.UserProfile) string { return p.Address.Country }, func(p *domain.UserProfile, v string) { p.Address.Country = v }},
	{"Emergency contact", func(p domain.UserProfile) string { return p.EmergencyContact.Name }, func(p *domain.UserProfile, v string) { p.EmergencyContact.Name = v }},
	{"Emergency phone", func(p domain.UserProfile) string { return p.EmergencyContact.Phone }, func(p *domain.UserProfile, v string) { p.EmergencyContact.Phone = v }},
	{"Emergency relation", func(p domain.UserProfile) string { return p.EmergencyContact.Relation }, func(p *domain.UserProfile, v string) { p.EmergencyContact.Relation = v }},
	{"Language", func(p domain.UserProfile) string { return p.Preferences.Language }, func(p *domain.UserProfile, v string) { p.Preferences.Language = v }},
	{"Notifications (yes/no)", func(p domain.UserProfile) string {
		if p.Preferences.NotificationsEnabled {
			return "yes"
		}
		return "no"
	}, func(p *domain.UserProfile, v string) {
		v = strings.ToLower(v)
		p.Preferences.NotificationsEnabled = v == "yes" || v == "y" || v == "ja" || v == "j"
	}},
}

// editFields prompts for every field; an empty answer keeps the value.
func (a *app) editFields(editor *usecase.ProfileEditor) error {
	a.term.Println("Press Enter to keep a value.")
	for _, f := range profileFields {
		current := f.get(editor.Profile())
		line, err := a.term.ReadLine(fmt.Sprintf("%s [%s]: ", f.label, current))
		if err != nil {
			return err
		}
		if line == "" {
			continue
		}
		set := f.set
		if err := editor.Edit(func(p *domain.UserProfile) { set(p, line) }); err != nil {
			return err
		}
	}
	return nil
}

func (a *app) printProfile(editor *usecase.ProfileEditor) {
	p := editor.Profile()
	for _, f := range profileFields {
		a.term.Printf("%-24s %s\n", f.label+":", f.get(p))
	}
	img := editor.DisplayImage()
	switch img.Kind {
	case domain.ImageServer:
		a.term.Printf("%-24s %s\n", "Image:", img.URL)
	case domain.ImagePendingPreview:
		a.term.Printf("%-24s %s\n", "Image:", "new image selected")
	case domain.ImageDeletedPlaceholder:
		a.term.Printf("%-24s %s\n", "Image:", "will be removed")
	default:
		a.term.Printf("%-24s [%s]\n", "Image:", img.Initials)
	}
}

func imageDataURL(path string) (string, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return "", fmt.Errorf("read image: %w", err)
	}
	mime := http.DetectContentType(data)
	if !strings.HasPrefix(mime, "image/") {
		return "", fmt.Errorf("%s is not an image (%s)", path, mime)
	}
	return "data:" + mime + ";base64," + base64.StdEncoding.EncodeToString(data), nil
}

func (a *app) docs(ctx context.Context, args []string) error {
	if len(args) == 0 {
		return fmt.Errorf("%w: docs: list, rename or delete", errUsage)
	}
	if err := a.requireSignedIn(); err != nil {
		return err
	}
	editor, err := a.profileEditor()
	if err != nil {
		return err
	}
	if err := editor.LoadDocuments(ctx); err != nil {
		return err
	}

	switch args[0] {
	case "list":
		docs := editor.Documents()
		if len(docs) == 0 {
			a.term.Println("No documents yet.")
		}
		for _, d := range docs {
			a.term.Printf("%-12s %-40s %s\n", d.ID, d.Name, d.UploadedAt.Local().Format("2006-01-02"))
		}
		return nil
	case "rename":
		if len(args) < 3 {
			return fmt.Errorf("%w: docs rename <id> <name>", errUsage)
		}
		if err := editor.RenameDocument(ctx, args[1], strings.Join(args[2:], " ")); err != nil {
			return err
		}
		a.term.Println("Renamed.")
		return nil
	case "delete":
		if len(args) != 2 {
			return fmt.Errorf("%w: docs delete <id>", errUsage)
		}
		deleted, err := editor.DeleteDocument(ctx, args[1])
		if err != nil {
			return err
		}
		if deleted {
			a.term.Println("Deleted.")
		} else {
			a.term.Println("Kept.")
		}
		return nil
	default:
		return fmt.Errorf("%w: docs: unknown subcommand %q", errUsage, args[0])
	}
}
