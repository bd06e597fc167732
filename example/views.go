package example

import (
	"context"
	"fmt"
	htmltemplate "html/template"

	"github.com/pthm/hxview"
	"github.com/pthm/hxview/lib/model"
)

var partials = htmltemplate.Must(htmltemplate.New("nav").Parse(
	`<nav class="nav"><a href="/">Directory</a> <a href="/about">About</a></nav>`,
))

// page parses text alongside the shared partials.
func page(name, text string) *htmltemplate.Template {
	return htmltemplate.Must(htmltemplate.Must(partials.Clone()).New(name).Parse(text))
}

var (
	directoryTmpl = page("directory", `{{template "nav"}}
<h1 class="title">{{.title}}</h1>
{{with .role}}<p class="filter">Role: {{.}} <a href="/">clear</a></p>{{end}}
<p class="roles">{{range .roles}}<a href="/roles/{{.}}">{{.}}</a> {{end}}</p>
<section data-region="list"></section>
<aside data-region="summary"></aside>`)

	listTmpl = page("list", `<ul class="users">{{range .items}}
<li class="user"><a href="/users/{{.id}}">{{.name}}</a> <span class="role">{{.role}}</span></li>{{end}}
</ul>{{if not .items}}<p class="empty">No users.</p>{{end}}`)

	statsTmpl = page("stats", `<p class="stats"><span class="total">{{.total}}</span> users, <span class="admins">{{.admins}}</span> admins</p>`)

	userTmpl = page("user", `{{template "nav"}}
<article class="user">
<h1 class="name">{{.name}}</h1>
<p class="email">{{.email}}</p>
<p class="role">{{.role}}</p>
<p class="created">Joined {{.created}}</p>
</article>`)

	aboutTmpl = page("about", `{{template "nav"}}
<h1>About</h1>
<p class="about">A user directory served by hxview.</p>`)
)

// DirectoryView lays out the user list and its summary in two regions.
// It serves both the unfiltered directory and the per-role routes.
type DirectoryView struct {
	*hxview.View
	state *model.Model
}

func NewDirectoryView() (*DirectoryView, error) {
	roles := make([]string, len(Roles))
	for i, r := range Roles {
		roles[i] = string(r)
	}

	v := &DirectoryView{state: model.New(map[string]any{
		"title": "Directory",
		"role":  "",
		"roles": roles,
	})}
	base, err := hxview.New(v, hxview.Options{
		TagName:   "section",
		ClassName: "directory",
		Model:     v.state,
		Template:  hxview.HTMLTemplate(directoryTmpl),
		Subviews: map[string]hxview.Factory{
			"list":    func() (hxview.Viewer, error) { return NewUserListView() },
			"summary": func() (hxview.Viewer, error) { return NewStatsView() },
		},
		UI: map[string]string{"title": ".title"},
	})
	if err != nil {
		return nil, err
	}
	v.View = base
	return v, nil
}

// LoadModel filters the directory by the role captured from roles/:role.
func (v *DirectoryView) LoadModel(ctx context.Context, params ...string) error {
	var role Role
	if len(params) > 0 && params[0] != "" {
		role = Role(params[0])
		if !role.Valid() {
			return fmt.Errorf("%w: role %q", hxview.ErrModelNotFound, params[0])
		}
	}
	v.state.Set("role", string(role))

	sub, _ := v.Subview("list")
	sub.(*UserListView).Filter(role)
	return nil
}

// AfterRender renders the subviews into their regions.
func (v *DirectoryView) AfterRender(ctx context.Context) error {
	for _, name := range v.Subviews() {
		sub, _ := v.Subview(name)
		if _, err := sub.Base().Render(ctx); err != nil {
			return err
		}
	}
	return nil
}

// UserListView renders the users of a role, or all users.
type UserListView struct {
	*hxview.View
	users *model.Collection
}

func NewUserListView() (*UserListView, error) {
	v := &UserListView{users: model.NewCollection()}
	base, err := hxview.New(v, hxview.Options{
		Collection: v.users,
		Template:   hxview.HTMLTemplate(listTmpl),
		UI:         map[string]string{"list": "ul.users"},
	})
	if err != nil {
		return nil, err
	}
	v.View = base
	v.Filter("")
	return v, nil
}

// Filter reloads the collection from the store.
func (v *UserListView) Filter(role Role) {
	users := currentStore().List(role)
	models := make([]*model.Model, len(users))
	for i := range users {
		models[i] = users[i].Model()
	}
	v.users.Reset(models...)
}

// StatsView summarizes the directory. Its numbers are computed on every
// render.
type StatsView struct {
	*hxview.View
}

func NewStatsView() (*StatsView, error) {
	v := &StatsView{}
	base, err := hxview.New(v, hxview.Options{
		Template: hxview.HTMLTemplate(statsTmpl),
	})
	if err != nil {
		return nil, err
	}
	v.View = base
	return v, nil
}

func (v *StatsView) TemplateHelpers() hxview.Data {
	stats := currentStore().Stats()
	return hxview.Data{
		"total":  stats.Total,
		"admins": stats.ByRole[RoleAdmin],
	}
}

// UserView shows one user, loaded from users/:id. Store changes to that
// user update its model; the next render shows them.
type UserView struct {
	*hxview.View
	user *model.Model
}

func NewUserView() (*UserView, error) {
	v := &UserView{user: model.New(nil)}
	base, err := hxview.New(v, hxview.Options{
		TagName:   "section",
		ClassName: "profile",
		Model:     v.user,
		Template:  hxview.HTMLTemplate(userTmpl),
		UI:        map[string]string{"name": ".name"},
	})
	if err != nil {
		return nil, err
	}
	v.View = base
	return v, nil
}

func (v *UserView) LoadModel(ctx context.Context, params ...string) error {
	if len(params) == 0 || params[0] == "" {
		return fmt.Errorf("%w: user id required", hxview.ErrModelNotFound)
	}
	id := params[0]

	store := currentStore()
	u, ok := store.Get(id)
	if !ok {
		return fmt.Errorf("%w: user %q", hxview.ErrModelNotFound, id)
	}
	v.user.SetAll(u.Attrs())

	hxview.ListenTo(v.View, store.Changes(), func(changed User) {
		if changed.ID == id {
			v.user.SetAll(changed.Attrs())
		}
	})
	return nil
}

// AboutView is a static page.
type AboutView struct {
	*hxview.View
}

func NewAboutView() (*AboutView, error) {
	v := &AboutView{}
	base, err := hxview.New(v, hxview.Options{
		Template: hxview.HTMLTemplate(aboutTmpl),
	})
	if err != nil {
		return nil, err
	}
	v.View = base
	return v, nil
}
