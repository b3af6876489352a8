package content

import "sort"

// fallbacks is the compiled-in copy shown before (or instead of) anything the
// remote store returns. It is never mutated at runtime.
var fallbacks = map[string]string{
	// hero
	"hero_title":         "Hi, I'm Alex Morgan",
	"hero_subtitle":      "Full-Stack Developer",
	"hero_description":   "I build fast, accessible web applications and the services behind them.",
	"hero_cta_primary":   "View My Work",
	"hero_cta_secondary": "Get In Touch",
	"hero_image":         "/images/profile.jpg",
	"hero_video":         "/videos/intro.mp4",

	// about
	"about_title":       "About Me",
	"about_subtitle":    "A little about who I am and what I do",
	"about_description": "I'm a developer with a passion for clean code and thoughtful design. I enjoy turning complex problems into simple, reliable software.",
	"about_experience":  "5+ years of professional experience",
	"about_location":    "Based in Toronto, Canada",
	"about_image":       "/images/about.jpg",
	"about_resume_url":  "/files/resume.pdf",

	// skills
	"skills_title":       "Skills & Technologies",
	"skills_subtitle":    "Tools I use to bring ideas to life",
	"skills_frontend":    "React, TypeScript, Tailwind CSS, Next.js",
	"skills_backend":     "Go, Node.js, PostgreSQL, Redis",
	"skills_tools":       "Docker, GitHub Actions, AWS, Figma",
	"skills_description": "Always learning, always shipping.",

	// projects
	"projects_title":        "Featured Projects",
	"projects_subtitle":     "A selection of recent work",
	"project_1_title":       "Task Manager",
	"project_1_description": "A collaborative task board with real-time updates.",
	"project_1_image":       "/images/project-1.jpg",
	"project_1_link":        "https://github.com/",
	"project_2_title":       "Weather Dashboard",
	"project_2_description": "Forecasts and historical charts for any city.",
	"project_2_image":       "/images/project-2.jpg",
	"project_2_link":        "https://github.com/",
	"project_3_title":       "E-Commerce API",
	"project_3_description": "A headless storefront backend with payments and inventory.",
	"project_3_image":       "/images/project-3.jpg",
	"project_3_link":        "https://github.com/",

	// certifications
	"certifications_title":    "Certifications",
	"certifications_subtitle": "Continuous learning and professional development",
	"certification_1_title":   "AWS Certified Developer - Associate",
	"certification_1_issuer":  "Amazon Web Services",
	"certification_1_date":    "2024",
	"certification_2_title":   "Professional Scrum Master I",
	"certification_2_issuer":  "Scrum.org",
	"certification_2_date":    "2023",
	"certification_3_title":   "Google UX Design Certificate",
	"certification_3_issuer":  "Google",
	"certification_3_date":    "2022",

	// contact
	"contact_title":        "Get In Touch",
	"contact_subtitle":     "Have a project in mind? Let's talk.",
	"contact_email":        "hello@example.com",
	"contact_phone":        "+1 (555) 123-4567",
	"contact_location":     "Toronto, Canada",
	"contact_linkedin":     "https://linkedin.com/",
	"contact_github":       "https://github.com/",
	"contact_button_text":  "Send Message",
	"contact_success_text": "Thanks! I'll get back to you soon.",

	// footer
	"footer_text":      "Designed and built with care.",
	"footer_copyright": "All rights reserved.",
}

// Fallback returns the static copy for name.
func Fallback(name string) (string, bool) {
	v, ok := fallbacks[name]
	return v, ok
}

// FallbackOrEmpty returns the static copy for name, or "" for unknown names.
func FallbackOrEmpty(name string) string {
	return fallbacks[name]
}

// FallbackFor builds a content map for names using only static copy.
func FallbackFor(names []string) map[string]string {
	out := make(map[string]string, len(names))
	for _, name := range names {
		out[name] = fallbacks[name]
	}
	return out
}

// Fallbacks returns a copy of the whole table.
func Fallbacks() map[string]string {
	out := make(map[string]string, len(fallbacks))
	for k, v := range fallbacks {
		out[k] = v
	}
	return out
}

// FallbackNames returns every known content name in sorted order.
func FallbackNames() []string {
	names := make([]string, 0, len(fallbacks))
	for name := range fallbacks {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}
