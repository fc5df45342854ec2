package service

import (
	"context"
	"crypto/rand"
	"fmt"
	"math/big"
	"strings"
	"time"

	"go-backoffice/internal/apperr"
	"go-backoffice/internal/domain/model"
	"go-backoffice/internal/logging"
	"go-backoffice/internal/metrics"
	"go-backoffice/internal/pkg/cache"
	"go-backoffice/internal/repository/dao"

	"go.uber.org/zap"
)

const (
	publicKeyLength      = 32
	publicKeyMaxAttempts = 10
	publicKeyAlphabet    = "abcdefghijklmnopqrstuvwxyzABCDEFGHIJKLMNOPQRSTUVWXYZ0123456789"

	msgFormNotFound      = "Form not found."
	msgFormFieldNotFound = "Form field not found."
)

// FormDetail 后台查看用：字段已补全标签与类型
type FormDetail struct {
	ID          int64               `json:"id"`
	Name        string              `json:"name"`
	Description *string             `json:"description"`
	Type        string              `json:"type"`
	IsActive    bool                `json:"is_active"`
	IsPublic    bool                `json:"is_public"`
	PublicKey   *string             `json:"public_key"`
	CreatedAt   time.Time           `json:"created_at"`
	UpdatedAt   time.Time           `json:"updated_at"`
	Fields      []EnrichedFormField `json:"form_fields"`
}

type PublicKeyResult struct {
	PublicKey string `json:"public_key"`
	PublicURL string `json:"public_url"`
}

type FormService struct {
	Forms  *dao.FormDAO
	Fields *dao.FormFieldDAO
	Meta   FieldMetaStore
	// Views 公开表单视图缓存，表单或字段变更时按 public_key 失效
	Views       cache.Cache
	FrontendURL string
	Logger      *logging.Logger

	// KeyGen 可替换，便于测试碰撞重试
	KeyGen func() (string, error)
}

func NewFormService(forms *dao.FormDAO, fields *dao.FormFieldDAO, meta FieldMetaStore, views cache.Cache, frontendURL string, l *logging.Logger) *FormService {
	return &FormService{Forms: forms, Fields: fields, Meta: meta, Views: views, FrontendURL: frontendURL, Logger: l, KeyGen: RandomPublicKey}
}

// RandomPublicKey 32 位字母数字，crypto/rand
func RandomPublicKey() (string, error) {
	var b strings.Builder
	b.Grow(publicKeyLength)
	size := big.NewInt(int64(len(publicKeyAlphabet)))
	for i := 0; i < publicKeyLength; i++ {
		n, err := rand.Int(rand.Reader, size)
		if err != nil {
			return "", err
		}
		b.WriteByte(publicKeyAlphabet[n.Int64()])
	}
	return b.String(), nil
}

func publicViewKey(key string) string { return "public_form:" + key }

func (s *FormService) invalidate(ctx context.Context, f *model.Form) {
	if s.Views == nil || f == nil || f.PublicKey == nil || *f.PublicKey == "" {
		return
	}
	if err := s.Views.Del(ctx, publicViewKey(*f.PublicKey)); err != nil {
		logging.FromContext(ctx, s.Logger).Warn("public_form_cache_del_failed", zap.Error(err))
	}
}

func (s *FormService) find(ctx context.Context, id int64, failMsg string) (*model.Form, error) {
	f, err := s.Forms.FindByID(ctx, id)
	if err != nil {
		return nil, apperr.Internal(failMsg, err)
	}
	if f == nil {
		return nil, apperr.NotFound(msgFormNotFound)
	}
	if f.Fields == nil {
		f.Fields = []model.FormField{}
	}
	return f, nil
}

func (s *FormService) List(ctx context.Context) ([]model.Form, error) {
	list, err := s.Forms.List(ctx)
	if err != nil {
		return nil, apperr.Internal("Failed to fetch forms.", err)
	}
	for i := range list {
		if list[i].Fields == nil {
			list[i].Fields = []model.FormField{}
		}
	}
	return list, nil
}

type CreateFormInput struct {
	Name        string
	Description *string
	Type        string
	IsActive    *bool
}

func validFormType(t string) bool { return t == model.FormTypeVendor || t == model.FormTypeProspect }

func (s *FormService) Create(ctx context.Context, in CreateFormInput) (*model.Form, error) {
	errs := map[string]string{}
	name := strings.TrimSpace(in.Name)
	if name == "" {
		errs["name"] = "The name field is required."
	}
	if !validFormType(in.Type) {
		errs["type"] = "The selected type is invalid."
	}
	if len(errs) > 0 {
		return nil, apperr.Validation(errs)
	}
	f := &model.Form{Name: name, Description: in.Description, Type: in.Type, IsActive: true, Fields: []model.FormField{}}
	if in.IsActive != nil {
		f.IsActive = *in.IsActive
	}
	if err := s.Forms.Create(ctx, f); err != nil {
		return nil, apperr.Internal("Failed to create form.", err)
	}
	return f, nil
}

// Show 后台视图：没有元数据的字段 field_type 为 null
func (s *FormService) Show(ctx context.Context, id int64) (*FormDetail, error) {
	f, err := s.find(ctx, id, "Failed to fetch form.")
	if err != nil {
		return nil, err
	}
	fields, err := enrichFields(ctx, s.Meta, f.Fields, nil)
	if err != nil {
		return nil, apperr.Internal("Failed to fetch form.", err)
	}
	return &FormDetail{
		ID: f.ID, Name: f.Name, Description: f.Description, Type: f.Type,
		IsActive: f.IsActive, IsPublic: f.IsPublic, PublicKey: f.PublicKey,
		CreatedAt: f.CreatedAt, UpdatedAt: f.UpdatedAt, Fields: fields,
	}, nil
}

// UpdateFormInput nil 表示不修改；SetDescription 为 true 时 Description 可置空
type UpdateFormInput struct {
	Name           *string
	SetDescription bool
	Description    *string
	Type           *string
	IsActive       *bool
}

func (s *FormService) Update(ctx context.Context, id int64, in UpdateFormInput) (*model.Form, error) {
	const failMsg = "Failed to update form."
	f, err := s.find(ctx, id, failMsg)
	if err != nil {
		return nil, err
	}
	errs := map[string]string{}
	if in.Name != nil {
		if name := strings.TrimSpace(*in.Name); name == "" {
			errs["name"] = "The name field is required."
		} else {
			f.Name = name
		}
	}
	if in.Type != nil {
		if !validFormType(*in.Type) {
			errs["type"] = "The selected type is invalid."
		} else {
			f.Type = *in.Type
		}
	}
	if len(errs) > 0 {
		return nil, apperr.Validation(errs)
	}
	if in.SetDescription {
		f.Description = in.Description
	}
	if in.IsActive != nil {
		f.IsActive = *in.IsActive
	}
	if err := s.Forms.Save(ctx, f); err != nil {
		return nil, apperr.Internal(failMsg, err)
	}
	s.invalidate(ctx, f)
	return f, nil
}

// Delete 连同表单字段一起删除
func (s *FormService) Delete(ctx context.Context, id int64) error {
	const failMsg = "Failed to delete form."
	f, err := s.find(ctx, id, failMsg)
	if err != nil {
		return err
	}
	if _, err := s.Forms.Delete(ctx, id); err != nil {
		return apperr.Internal(failMsg, err)
	}
	s.invalidate(ctx, f)
	return nil
}

type AddFieldInput struct {
	FieldName   string
	FieldSource string
	IsRequired  *bool
	IsVisible   *bool
}

// AddField display_order 取当前最大值 + 1，不回收空位
func (s *FormService) AddField(ctx context.Context, formID int64, in AddFieldInput) (*model.FormField, error) {
	const failMsg = "Failed to add field to form."
	f, err := s.find(ctx, formID, failMsg)
	if err != nil {
		return nil, err
	}
	errs := map[string]string{}
	name := strings.TrimSpace(in.FieldName)
	if name == "" {
		errs["field_name"] = "The field name field is required."
	}
	if !validFormType(in.FieldSource) {
		errs["field_source"] = "The selected field source is invalid."
	}
	if len(errs) > 0 {
		return nil, apperr.Validation(errs)
	}
	maxOrder, err := s.Fields.MaxOrder(ctx, formID)
	if err != nil {
		return nil, apperr.Internal(failMsg, err)
	}
	ff := &model.FormField{
		FormID:       formID,
		FieldName:    name,
		FieldSource:  in.FieldSource,
		DisplayOrder: maxOrder + 1,
		IsRequired:   false,
		IsVisible:    true,
	}
	if in.IsRequired != nil {
		ff.IsRequired = *in.IsRequired
	}
	if in.IsVisible != nil {
		ff.IsVisible = *in.IsVisible
	}
	if err := s.Fields.Create(ctx, ff); err != nil {
		return nil, apperr.Internal(failMsg, err)
	}
	s.invalidate(ctx, f)
	return ff, nil
}

type UpdateFormFieldInput struct {
	IsRequired   *bool
	IsVisible    *bool
	DisplayOrder *int
}

// findField 字段必须属于该表单；通过别的表单 id 访问视为不存在
func (s *FormService) findField(ctx context.Context, formID, fieldID int64, failMsg string) (*model.FormField, error) {
	ff, err := s.Fields.FindInForm(ctx, formID, fieldID)
	if err != nil {
		return nil, apperr.Internal(failMsg, err)
	}
	if ff == nil {
		return nil, apperr.NotFound(msgFormFieldNotFound)
	}
	return ff, nil
}

func (s *FormService) UpdateField(ctx context.Context, formID, fieldID int64, in UpdateFormFieldInput) (*model.FormField, error) {
	const failMsg = "Failed to update form field."
	ff, err := s.findField(ctx, formID, fieldID, failMsg)
	if err != nil {
		return nil, err
	}
	if in.IsRequired != nil {
		ff.IsRequired = *in.IsRequired
	}
	if in.IsVisible != nil {
		ff.IsVisible = *in.IsVisible
	}
	if in.DisplayOrder != nil {
		ff.DisplayOrder = *in.DisplayOrder
	}
	if err := s.Fields.Save(ctx, ff); err != nil {
		return nil, apperr.Internal(failMsg, err)
	}
	s.invalidateByID(ctx, formID)
	return ff, nil
}

func (s *FormService) DeleteField(ctx context.Context, formID, fieldID int64) error {
	const failMsg = "Failed to delete form field."
	if _, err := s.findField(ctx, formID, fieldID, failMsg); err != nil {
		return err
	}
	if _, err := s.Fields.Delete(ctx, formID, fieldID); err != nil {
		return apperr.Internal(failMsg, err)
	}
	s.invalidateByID(ctx, formID)
	return nil
}

// ReorderFields 每个 id 必须存在于 form_fields，否则 422；
// 更新带 form_id 条件，别的表单的字段被静默跳过
func (s *FormService) ReorderFields(ctx context.Context, formID int64, ids []int64) error {
	const failMsg = "Failed to update field order."
	f, err := s.find(ctx, formID, failMsg)
	if err != nil {
		return err
	}
	if len(ids) == 0 {
		return apperr.Field("field_ids", "The field ids field is required.")
	}
	existing, err := s.Fields.ExistingIDs(ctx, ids)
	if err != nil {
		return apperr.Internal(failMsg, err)
	}
	known := make(map[int64]struct{}, len(existing))
	for _, id := range existing {
		known[id] = struct{}{}
	}
	errs := map[string]string{}
	for i, id := range ids {
		if _, ok := known[id]; !ok {
			errs[fmt.Sprintf("field_ids.%d", i)] = fmt.Sprintf("The selected field_ids.%d is invalid.", i)
		}
	}
	if len(errs) > 0 {
		return apperr.Validation(errs)
	}
	if err := s.Fields.Reorder(ctx, formID, ids); err != nil {
		return apperr.Internal(failMsg, err)
	}
	s.invalidate(ctx, f)
	return nil
}

func (s *FormService) invalidateByID(ctx context.Context, formID int64) {
	if s.Views == nil {
		return
	}
	if f, err := s.Forms.FindByID(ctx, formID); err == nil {
		s.invalidate(ctx, f)
	}
}

// GeneratePublicKey 生成未被占用的 key 并公开表单。
// 先查存在性，再依赖唯一索引兜底：并发下撞到 ErrDuplicatedKey 也会换 key 重试。
func (s *FormService) GeneratePublicKey(ctx context.Context, formID int64) (*PublicKeyResult, error) {
	const failMsg = "Failed to generate public key."
	f, err := s.find(ctx, formID, failMsg)
	if err != nil {
		return nil, err
	}
	lg := logging.FromContext(ctx, s.Logger)
	for attempt := 1; attempt <= publicKeyMaxAttempts; attempt++ {
		key, err := s.KeyGen()
		if err != nil {
			metrics.PublicKeyGenerated.WithLabelValues("failed").Inc()
			return nil, apperr.Internal(failMsg, err)
		}
		used, err := s.Forms.PublicKeyExists(ctx, key)
		if err != nil {
			metrics.PublicKeyGenerated.WithLabelValues("failed").Inc()
			return nil, apperr.Internal(failMsg, err)
		}
		if used {
			metrics.PublicKeyGenerated.WithLabelValues("collision").Inc()
			lg.Warn("public_key_collision", zap.Int64("form_id", formID), zap.Int("attempt", attempt))
			continue
		}
		if err := s.Forms.Publish(ctx, formID, key); err != nil {
			if dao.IsDuplicate(err) {
				metrics.PublicKeyGenerated.WithLabelValues("collision").Inc()
				lg.Warn("public_key_collision", zap.Int64("form_id", formID), zap.Int("attempt", attempt))
				continue
			}
			metrics.PublicKeyGenerated.WithLabelValues("failed").Inc()
			return nil, apperr.Internal(failMsg, err)
		}
		s.invalidate(ctx, f)
		metrics.PublicKeyGenerated.WithLabelValues("ok").Inc()
		return &PublicKeyResult{PublicKey: key, PublicURL: s.publicURL(key)}, nil
	}
	metrics.PublicKeyGenerated.WithLabelValues("failed").Inc()
	return nil, apperr.Internal(failMsg, fmt.Errorf("no unused public key after %d attempts", publicKeyMaxAttempts))
}

func (s *FormService) publicURL(key string) string {
	return strings.TrimRight(s.FrontendURL, "/") + "/public/form/" + key
}
