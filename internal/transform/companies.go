package transform

import "github.com/igdb-proxy/internal/domain"

// SplitCompanyRoles partitions involved companies into developer and
// publisher names, dropping duplicates and keeping first-seen order.
func SplitCompanyRoles(companies []domain.InvolvedCompany) domain.CompanyRoles {
	roles := domain.CompanyRoles{
		Developers: []string{},
		Publishers: []string{},
	}

	seenDev := make(map[string]struct{}, len(companies))
	seenPub := make(map[string]struct{}, len(companies))
	for _, c := range companies {
		name := c.Company.Name
		if c.Developer {
			if _, ok := seenDev[name]; !ok {
				seenDev[name] = struct{}{}
				roles.Developers = append(roles.Developers, name)
			}
		}
		if c.Publisher {
			if _, ok := seenPub[name]; !ok {
				seenPub[name] = struct{}{}
				roles.Publishers = append(roles.Publishers, name)
			}
		}
	}
	return roles
}
