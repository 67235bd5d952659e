package mail

import (
	"bytes"
	"embed"
	"fmt"
	htmltemplate "html/template"
	"strings"
	texttemplate "text/template"
	"time"
)

// Template names, also used as metrics labels and provider tags.
const (
	TemplateInvitation     = "invitation"
	TemplateSignupPending  = "signup_pending"
	TemplateSignupApproved = "signup_approved"
	TemplateSignupDenied   = "signup_denied"
)

//go:embed templates/*
var templateFS embed.FS

var subjects = map[string]string{
	TemplateInvitation:     "You're invited to a shared library",
	TemplateSignupPending:  "New signup waiting for approval",
	TemplateSignupApproved: "Your account has been approved",
	TemplateSignupDenied:   "Your signup request",
}

// Renderer turns template data into messages. Links are built from publicURL.
type Renderer struct {
	publicURL string
	html      map[string]*htmltemplate.Template
	text      map[string]*texttemplate.Template
}

func NewRenderer(publicURL string) (*Renderer, error) {
	r := &Renderer{
		publicURL: strings.TrimRight(publicURL, "/"),
		html:      make(map[string]*htmltemplate.Template),
		text:      make(map[string]*texttemplate.Template),
	}
	for name := range subjects {
		h, err := htmltemplate.ParseFS(templateFS, "templates/layout.html", "templates/"+name+".html")
		if err != nil {
			return nil, fmt.Errorf("parse %s html: %w", name, err)
		}
		t, err := texttemplate.ParseFS(templateFS, "templates/"+name+".txt")
		if err != nil {
			return nil, fmt.Errorf("parse %s text: %w", name, err)
		}
		r.html[name] = h
		r.text[name] = t
	}
	return r, nil
}

// InvitationData fills the invitation template.
type InvitationData struct {
	InviterName  string
	LocationName string
	Token        string
	AcceptURL    string
	ExpiresAt    time.Time
}

type SignupData struct {
	Name      string
	Email     string
	Note      string
	ReviewURL string
	LoginURL  string
}

func (r *Renderer) Invitation(to string, data InvitationData) (Message, error) {
	data.AcceptURL = fmt.Sprintf("%s/invitations/%s", r.publicURL, data.Token)
	return r.render(TemplateInvitation, []string{to}, data)
}

// SignupPending goes to every admin.
func (r *Renderer) SignupPending(admins []string, data SignupData) (Message, error) {
	data.ReviewURL = r.publicURL + "/admin/signups"
	return r.render(TemplateSignupPending, admins, data)
}

func (r *Renderer) SignupApproved(to string, data SignupData) (Message, error) {
	data.LoginURL = r.publicURL + "/login"
	return r.render(TemplateSignupApproved, []string{to}, data)
}

func (r *Renderer) SignupDenied(to string, data SignupData) (Message, error) {
	return r.render(TemplateSignupDenied, []string{to}, data)
}

func (r *Renderer) render(name string, to []string, data any) (Message, error) {
	var html, text bytes.Buffer
	if err := r.html[name].ExecuteTemplate(&html, "layout", data); err != nil {
		return Message{}, fmt.Errorf("render %s: %w", name, err)
	}
	if err := r.text[name].Execute(&text, data); err != nil {
		return Message{}, fmt.Errorf("render %s: %w", name, err)
	}
	return Message{
		To:       to,
		Subject:  subjects[name],
		HTML:     html.String(),
		Text:     strings.TrimSpace(text.String()),
		Template: name,
	}, nil
}
