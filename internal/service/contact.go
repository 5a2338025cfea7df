package service

import (
	"context"
	"time"

	"github.com/corebill/corebill/internal/api/dto"
	"github.com/corebill/corebill/internal/cache"
	"github.com/corebill/corebill/internal/domain/contact"
	"github.com/corebill/corebill/internal/types"
)

// ContactService manages billable customers
type ContactService interface {
	CreateContact(ctx context.Context, req *dto.CreateContactRequest) (*dto.ContactResponse, error)
	GetContact(ctx context.Context, id string) (*dto.ContactResponse, error)
	ListContacts(ctx context.Context, filter *types.QueryFilter) (*dto.ListContactsResponse, error)
	UpdateContact(ctx context.Context, id string, req *dto.UpdateContactRequest) (*dto.ContactResponse, error)
	DeleteContact(ctx context.Context, id string) error
}

type contactService struct {
	ServiceParams
}

// NewContactService creates a new contact service
func NewContactService(params ServiceParams) ContactService {
	return &contactService{ServiceParams: params}
}

func (s *contactService) CreateContact(ctx context.Context, req *dto.CreateContactRequest) (*dto.ContactResponse, error) {
	if err := req.Validate(); err != nil {
		return nil, err
	}

	cont := &contact.Contact{
		ID:        types.GenerateUUIDWithPrefix(types.UUID_PREFIX_CONTACT),
		Name:      req.Name,
		Email:     req.Email,
		Phone:     req.Phone,
		Company:   req.Company,
		Address:   req.Address,
		Notes:     req.Notes,
		Metadata:  req.Metadata,
		BaseModel: types.GetDefaultBaseModel(ctx),
	}
	if err := cont.Validate(); err != nil {
		return nil, err
	}

	if err := s.ContactRepo.Create(ctx, cont); err != nil {
		return nil, err
	}

	s.Logger.Infow("created contact", "contact_id", cont.ID)
	return &dto.ContactResponse{Contact: cont}, nil
}

func (s *contactService) GetContact(ctx context.Context, id string) (*dto.ContactResponse, error) {
	if s.Cache != nil {
		if cached, ok := s.Cache.Get(ctx, cache.Key(cache.PrefixContact, types.GetOrgID(ctx), id)); ok {
			if cont, ok := cached.(*contact.Contact); ok {
				return &dto.ContactResponse{Contact: cont}, nil
			}
		}
	}

	cont, err := s.ContactRepo.Get(ctx, id)
	if err != nil {
		return nil, err
	}

	if s.Cache != nil {
		s.Cache.Set(ctx, cache.Key(cache.PrefixContact, types.GetOrgID(ctx), id), cont, cache.DefaultExpiration)
	}
	return &dto.ContactResponse{Contact: cont}, nil
}

func (s *contactService) ListContacts(ctx context.Context, filter *types.QueryFilter) (*dto.ListContactsResponse, error) {
	if filter == nil {
		filter = types.NewDefaultQueryFilter()
	}
	if err := filter.Validate(); err != nil {
		return nil, err
	}

	contacts, err := s.ContactRepo.List(ctx, filter)
	if err != nil {
		return nil, err
	}
	total, err := s.ContactRepo.Count(ctx, filter)
	if err != nil {
		return nil, err
	}

	items := make([]*dto.ContactResponse, len(contacts))
	for i, cont := range contacts {
		items[i] = &dto.ContactResponse{Contact: cont}
	}
	return &dto.ListContactsResponse{Items: items, Total: total}, nil
}

// UpdateContact edits a contact. Issued invoices keep their snapshot; only
// future sends pick up the new details.
func (s *contactService) UpdateContact(ctx context.Context, id string, req *dto.UpdateContactRequest) (*dto.ContactResponse, error) {
	if err := req.Validate(); err != nil {
		return nil, err
	}

	cont, err := s.ContactRepo.Get(ctx, id)
	if err != nil {
		return nil, err
	}

	if req.Name != nil {
		cont.Name = *req.Name
	}
	if req.Email != nil {
		cont.Email = *req.Email
	}
	if req.Phone != nil {
		cont.Phone = *req.Phone
	}
	if req.Company != nil {
		cont.Company = *req.Company
	}
	if req.Address != nil {
		cont.Address = *req.Address
	}
	if req.Notes != nil {
		cont.Notes = *req.Notes
	}
	if req.Metadata != nil {
		cont.Metadata = req.Metadata
	}
	if err := cont.Validate(); err != nil {
		return nil, err
	}

	cont.UpdatedAt = time.Now().UTC()
	cont.UpdatedBy = types.GetUserID(ctx)
	if err := s.ContactRepo.Update(ctx, cont); err != nil {
		return nil, err
	}

	s.invalidate(ctx, id)
	return &dto.ContactResponse{Contact: cont}, nil
}

func (s *contactService) DeleteContact(ctx context.Context, id string) error {
	if _, err := s.ContactRepo.Get(ctx, id); err != nil {
		return err
	}
	if err := s.ContactRepo.Delete(ctx, id); err != nil {
		return err
	}

	s.invalidate(ctx, id)
	s.Logger.Infow("deleted contact", "contact_id", id)
	return nil
}

func (s *contactService) invalidate(ctx context.Context, id string) {
	if s.Cache == nil {
		return
	}
	s.Cache.Delete(ctx, cache.Key(cache.PrefixContact, types.GetOrgID(ctx), id))
}
