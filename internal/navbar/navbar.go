// Package navbar computes the navigation links for a session state.
package navbar

import "github.com/talkincode/storefront/internal/domain"

// Link is one navigation entry. Method is "POST" for links that change state.
type Link struct {
	Label  string
	Href   string
	Method string
}

func (l Link) IsPost() bool {
	return l.Method == "POST"
}

// Links is Home followed by Login and Sign Up for visitors, or Sell,
// Products and Logout for a logged in user.
func Links(st domain.SessionState) []Link {
	links := []Link{{Label: "Home", Href: "/"}}
	if !st.LoggedIn {
		return append(links,
			Link{Label: "Login", Href: "/login"},
			Link{Label: "Sign Up", Href: "/signup"},
		)
	}
	return append(links,
		Link{Label: "Sell", Href: "/product/form"},
		Link{Label: "Products", Href: "/product"},
		Link{Label: "Logout", Href: "/logout", Method: "POST"},
	)
}
