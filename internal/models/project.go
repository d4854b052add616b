package models

// Project 作品集中展示的项目，每个项目页有独立的评论区
type Project struct {
	ID          string
	Title       string
	Description string
	TechStack   []string
	GithubURL   string
}

// PageID returns the comment thread partition of the project page.
func (p Project) PageID() string {
	return "project_" + p.ID
}

// HomePageID 首页评论区
const HomePageID = "home"

var projects = []Project{
	{
		ID:          "1",
		Title:       "Annotation Expert Recruitment Platform",
		Description: "Link AI data demanders with top domain annotation experts efficiently.",
		TechStack:   []string{"Experts", "AI Interview"},
		GithubURL:   "https://github.com",
	},
}

// Projects returns the showcased projects.
func Projects() []Project {
	return projects
}

// FindProject looks a project up by id.
func FindProject(id string) (Project, bool) {
	for _, p := range projects {
		if p.ID == id {
			return p, true
		}
	}
	return Project{}, false
}
