package services

import (
	"crypto/tls"
	"fmt"

	"github.com/go-ldap/ldap/v3"
	"github.com/viprasethu/backend/internal/config"
	"github.com/viprasethu/backend/pkg/response"
)

// LDAPService authenticates staff accounts against a directory.
type LDAPService struct {
	config *config.LDAPConfig
}

func NewLDAPService(cfg *config.LDAPConfig) *LDAPService {
	return &LDAPService{config: cfg}
}

func (s *LDAPService) IsEnabled() bool {
	return s.config != nil && s.config.Enabled
}

// Authenticate looks the user up by email with the service account, then
// binds as that user to check the password.
func (s *LDAPService) Authenticate(email, password string) (*LDAPUser, error) {
	if !s.IsEnabled() {
		return nil, response.NewBadRequest("LDAP is not enabled")
	}
	if password == "" {
		return nil, response.NewUnauthorized("invalid email or password")
	}

	addr := fmt.Sprintf("%s:%d", s.config.Host, s.config.Port)
	var conn *ldap.Conn
	var err error

	if s.config.UseSSL {
		conn, err = ldap.DialURL("ldaps://"+addr, ldap.DialWithTLSConfig(&tls.Config{ServerName: s.config.Host}))
	} else {
		conn, err = ldap.DialURL("ldap://" + addr)
	}
	if err != nil {
		return nil, fmt.Errorf("connect to LDAP server: %w", err)
	}
	defer conn.Close()

	if s.config.BindDN != "" {
		if err := conn.Bind(s.config.BindDN, s.config.BindPassword); err != nil {
			return nil, fmt.Errorf("bind with service account: %w", err)
		}
	}

	searchRequest := ldap.NewSearchRequest(
		s.config.BaseDN,
		ldap.ScopeWholeSubtree, ldap.NeverDerefAliases, 0, 0, false,
		s.filterFor(email),
		[]string{"dn", "cn", "mail", "uid", "telephoneNumber"},
		nil,
	)

	result, err := conn.Search(searchRequest)
	if err != nil {
		return nil, fmt.Errorf("LDAP search failed: %w", err)
	}
	if len(result.Entries) != 1 {
		return nil, response.NewUnauthorized("invalid email or password")
	}

	entry := result.Entries[0]
	if err := conn.Bind(entry.DN, password); err != nil {
		return nil, response.NewUnauthorized("invalid email or password")
	}

	user := &LDAPUser{
		DN:       entry.DN,
		Email:    entry.GetAttributeValue("mail"),
		FullName: entry.GetAttributeValue("cn"),
		Phone:    entry.GetAttributeValue("telephoneNumber"),
	}
	if user.Email == "" {
		user.Email = email
	}
	return user, nil
}

func (s *LDAPService) filterFor(email string) string {
	filter := s.config.UserFilter
	if filter == "" {
		filter = "(mail=%s)"
	}
	return fmt.Sprintf(filter, ldap.EscapeFilter(email))
}

type LDAPUser struct {
	DN       string
	Email    string
	FullName string
	Phone    string
}
