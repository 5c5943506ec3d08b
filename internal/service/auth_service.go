package service

import (
	"fmt"

	"koios-rag-be/internal/dto"
	"koios-rag-be/internal/pkg/serverutils"
)

// IAuthService issues API tokens for approved user ids.
type IAuthService interface {
	IssueToken(request *dto.TokenRequest) (*dto.TokenResponse, error)
	IsUserApproved(userId string) bool
	IsIpAuthorized(ip string) bool
}

type authService struct {
	secretKey     string
	issuer        string
	expiryHours   int
	approvedUsers map[string]struct{}
	authorizedIps map[string]struct{}
}

func NewAuthService(secretKey, issuer string, expiryHours int, approvedUserIds, authorizedTokenIps []string) IAuthService {
	approved := make(map[string]struct{}, len(approvedUserIds))
	for _, id := range approvedUserIds {
		approved[id] = struct{}{}
	}
	ips := make(map[string]struct{}, len(authorizedTokenIps))
	for _, ip := range authorizedTokenIps {
		ips[ip] = struct{}{}
	}

	return &authService{
		secretKey:     secretKey,
		issuer:        issuer,
		expiryHours:   expiryHours,
		approvedUsers: approved,
		authorizedIps: ips,
	}
}

func (s *authService) IssueToken(request *dto.TokenRequest) (*dto.TokenResponse, error) {
	if !s.IsUserApproved(request.UserId) {
		return nil, fmt.Errorf("user %s is not approved", request.UserId)
	}

	token, err := serverutils.IssueToken(s.secretKey, s.issuer, request.UserId, s.expiryHours)
	if err != nil {
		return nil, fmt.Errorf("failed to sign token: %w", err)
	}
	return &dto.TokenResponse{Token: token}, nil
}

// IsUserApproved returns true when the list is empty (open mode) or the id is
// on it.
func (s *authService) IsUserApproved(userId string) bool {
	if len(s.approvedUsers) == 0 {
		return true
	}
	_, ok := s.approvedUsers[userId]
	return ok
}

// IsIpAuthorized gates the token endpoint. An empty list only admits
// loopback callers.
func (s *authService) IsIpAuthorized(ip string) bool {
	if len(s.authorizedIps) == 0 {
		return ip == "127.0.0.1" || ip == "::1"
	}
	_, ok := s.authorizedIps[ip]
	return ok
}
