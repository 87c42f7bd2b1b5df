package service

import (
	"context"
	"errors"
	"fmt"
	"io"
	"strings"
	"unicode/utf8"

	"github.com/xuri/excelize/v2"
	"go.uber.org/zap"
	"gorm.io/gorm"

	"stargate/backend/internal/dto"
	"stargate/backend/internal/model"
	"stargate/backend/internal/repository"
	"stargate/backend/internal/timeline"
	pkgerrors "stargate/backend/pkg/errors"
)

// ── 人员模块业务错误 ──

const (
	maxNameLen     = 255
	maxImportRows  = 1000
	importNameHead = "name"
)

var (
	ErrPersonNotFound    = fmt.Errorf("%w: 人员不存在", pkgerrors.ErrNotFound)
	ErrPersonNameInvalid = fmt.Errorf("%w: 姓名不能为空且不超过 %d 个字符", pkgerrors.ErrInvalidInput, maxNameLen)
	ErrPersonNameTaken   = fmt.Errorf("%w: 姓名已被使用", pkgerrors.ErrConflict)

	ErrImportFileInvalid = fmt.Errorf("%w: 无法解析 Excel 文件", pkgerrors.ErrInvalidInput)
	ErrImportNoData      = fmt.Errorf("%w: Excel 文件无数据行（第一行为表头）", pkgerrors.ErrInvalidInput)
	ErrImportTooManyRows = fmt.Errorf("%w: 数据行数超过上限 %d 行", pkgerrors.ErrInvalidInput, maxImportRows)
)

// PersonService 人员业务接口
type PersonService interface {
	Create(ctx context.Context, req *dto.CreatePersonRequest, callerID string) (*dto.PersonResponse, error)
	GetByName(ctx context.Context, name string) (*dto.PersonResponse, error)
	List(ctx context.Context, req *dto.PaginationRequest) ([]dto.PersonResponse, int64, error)
	Rename(ctx context.Context, name string, req *dto.RenamePersonRequest, callerID string) (*dto.PersonResponse, error)
	Import(ctx context.Context, reader io.Reader, callerID string) (*dto.ImportPeopleResponse, error)
	// ListAstronauts 仅列出已有值勤记录（即已有职业概要）的人员
	ListAstronauts(ctx context.Context, req *dto.PaginationRequest) ([]dto.PersonResponse, int64, error)
}

type personService struct {
	repo   *repository.Repository
	logger *zap.Logger
}

// NewPersonService 创建 PersonService 实例
func NewPersonService(repo *repository.Repository, logger *zap.Logger) PersonService {
	return &personService{repo: repo, logger: logger}
}

// normalizeName 去除首尾空白并校验长度；大小写保持原样
func normalizeName(name string) (string, error) {
	name = strings.TrimSpace(name)
	if name == "" || utf8.RuneCountInString(name) > maxNameLen {
		return "", ErrPersonNameInvalid
	}
	return name, nil
}

// ────────────────────── Create ──────────────────────

func (s *personService) Create(ctx context.Context, req *dto.CreatePersonRequest, callerID string) (*dto.PersonResponse, error) {
	name, err := normalizeName(req.Name)
	if err != nil {
		return nil, err
	}

	person := &model.Person{Name: name}
	person.CreatedBy = &callerID
	person.UpdatedBy = &callerID

	if err := s.repo.Person.Create(ctx, person); err != nil {
		if errors.Is(err, gorm.ErrDuplicatedKey) {
			return nil, ErrPersonNameTaken
		}
		s.logger.Error("创建人员失败", zap.String("name", name), zap.Error(err))
		return nil, err
	}

	s.logger.Info("人员已创建", zap.String("person_id", person.PersonID), zap.String("operator", callerID))
	return toPersonResponse(person), nil
}

// ────────────────────── GetByName ──────────────────────

func (s *personService) GetByName(ctx context.Context, name string) (*dto.PersonResponse, error) {
	person, err := s.findByName(ctx, name)
	if err != nil {
		return nil, err
	}
	return toPersonResponse(person), nil
}

func (s *personService) findByName(ctx context.Context, name string) (*model.Person, error) {
	name, err := normalizeName(name)
	if err != nil {
		return nil, err
	}
	person, err := s.repo.Person.GetByName(ctx, name)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrPersonNotFound
		}
		s.logger.Error("查询人员失败", zap.String("name", name), zap.Error(err))
		return nil, err
	}
	return person, nil
}

// ────────────────────── List ──────────────────────

func (s *personService) List(ctx context.Context, req *dto.PaginationRequest) ([]dto.PersonResponse, int64, error) {
	people, total, err := s.repo.Person.List(ctx, req.GetOffset(), req.GetPageSize())
	if err != nil {
		s.logger.Error("查询人员列表失败", zap.Error(err))
		return nil, 0, err
	}
	return toPersonResponses(people), total, nil
}

func (s *personService) ListAstronauts(ctx context.Context, req *dto.PaginationRequest) ([]dto.PersonResponse, int64, error) {
	people, total, err := s.repo.CareerSummary.ListAstronauts(ctx, req.GetOffset(), req.GetPageSize())
	if err != nil {
		s.logger.Error("查询宇航员列表失败", zap.Error(err))
		return nil, 0, err
	}
	return toPersonResponses(people), total, nil
}

// ────────────────────── Rename ──────────────────────

func (s *personService) Rename(ctx context.Context, name string, req *dto.RenamePersonRequest, callerID string) (*dto.PersonResponse, error) {
	newName, err := normalizeName(req.Name)
	if err != nil {
		return nil, err
	}

	person, err := s.findByName(ctx, name)
	if err != nil {
		return nil, err
	}
	if person.Name == newName {
		return toPersonResponse(person), nil
	}

	if err := s.repo.Person.Rename(ctx, person.PersonID, newName, callerID); err != nil {
		switch {
		case errors.Is(err, gorm.ErrDuplicatedKey):
			return nil, ErrPersonNameTaken
		case errors.Is(err, gorm.ErrRecordNotFound):
			return nil, ErrPersonNotFound
		}
		s.logger.Error("人员改名失败", zap.String("person_id", person.PersonID), zap.Error(err))
		return nil, err
	}

	s.logger.Info("人员已改名",
		zap.String("person_id", person.PersonID),
		zap.String("from", person.Name),
		zap.String("to", newName),
		zap.String("operator", callerID),
	)
	person.Name = newName
	return toPersonResponse(person), nil
}

// ────────────────────── Import ──────────────────────

// importRow 表格中的一行；Row 为表格行号
type importRow struct {
	Row  int
	Name string
}

// parseImportFile 读取第一个工作表的 A 列（或表头为 name/姓名 的列），首行为表头
func parseImportFile(reader io.Reader) ([]importRow, error) {
	f, err := excelize.OpenReader(reader)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrImportFileInvalid, err)
	}
	defer f.Close()

	sheetName := f.GetSheetName(0)
	excelRows, err := f.GetRows(sheetName)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrImportFileInvalid, err)
	}
	if len(excelRows) < 2 {
		return nil, ErrImportNoData
	}

	col := 0
	for i, h := range excelRows[0] {
		h = strings.ToLower(strings.TrimSpace(h))
		if h == importNameHead || h == "姓名" {
			col = i
			break
		}
	}

	var rows []importRow
	for i := 1; i < len(excelRows); i++ {
		item := importRow{Row: i + 1}
		if col < len(excelRows[i]) {
			item.Name = strings.TrimSpace(excelRows[i][col])
		}
		// 跳过全空行
		if item.Name == "" && strings.TrimSpace(strings.Join(excelRows[i], "")) == "" {
			continue
		}
		rows = append(rows, item)
	}

	if len(rows) == 0 {
		return nil, ErrImportNoData
	}
	if len(rows) > maxImportRows {
		return nil, ErrImportTooManyRows
	}
	return rows, nil
}

func (s *personService) Import(ctx context.Context, reader io.Reader, callerID string) (*dto.ImportPeopleResponse, error) {
	rows, err := parseImportFile(reader)
	if err != nil {
		return nil, err
	}

	resp := &dto.ImportPeopleResponse{}

	// 第一阶段：行级校验（不接触数据库写操作）
	seen := make(map[string]int, len(rows))
	var valid []importRow
	for _, row := range rows {
		name, err := normalizeName(row.Name)
		if err != nil {
			resp.Errors = append(resp.Errors, dto.ImportRowError{Row: row.Row, Name: row.Name, Reason: "姓名为空或过长"})
			continue
		}
		if first, dup := seen[name]; dup {
			resp.Errors = append(resp.Errors, dto.ImportRowError{
				Row: row.Row, Name: name, Reason: fmt.Sprintf("与第 %d 行重复", first),
			})
			continue
		}
		seen[name] = row.Row
		valid = append(valid, importRow{Row: row.Row, Name: name})
	}

	if len(valid) == 0 {
		return resp, nil
	}

	// 第二阶段：在事务中写入所有通过校验的人员，已存在的姓名跳过
	tx, err := s.repo.BeginTx(ctx)
	if err != nil {
		s.logger.Error("开启事务失败", zap.Error(err))
		return nil, err
	}
	defer func() {
		if r := recover(); r != nil {
			if tx != nil {
				tx.Rollback()
			}
			panic(r)
		}
	}()

	txRepo := s.repo.WithTx(tx)

	for _, row := range valid {
		person := &model.Person{Name: row.Name}
		person.CreatedBy = &callerID
		person.UpdatedBy = &callerID

		created, err := txRepo.Person.CreateIfAbsent(ctx, person)
		if err != nil {
			// 事务中任一写入失败则全部回滚
			if tx != nil {
				tx.Rollback()
			}
			s.logger.Error("导入人员写入失败，事务回滚", zap.Int("row", row.Row), zap.Error(err))
			return nil, fmt.Errorf("第 %d 行写入数据库失败，已回滚全部导入: %w", row.Row, err)
		}
		if created {
			resp.Created++
		} else {
			resp.Existing++
		}
	}

	if tx != nil {
		if err := tx.Commit().Error; err != nil {
			s.logger.Error("提交事务失败", zap.Error(err))
			return nil, err
		}
	}

	s.logger.Info("人员导入完成",
		zap.Int("created", resp.Created),
		zap.Int("existing", resp.Existing),
		zap.Int("errors", len(resp.Errors)),
		zap.String("operator", callerID),
	)
	return resp, nil
}

// ── 内部辅助方法 ──

func toPersonResponse(p *model.Person) *dto.PersonResponse {
	resp := &dto.PersonResponse{ID: p.PersonID, Name: p.Name}
	if cs := p.CareerSummary; cs != nil {
		resp.CareerSummary = &dto.CareerSummaryResponse{
			CurrentRank:      cs.CurrentRank,
			CurrentDutyTitle: cs.CurrentDutyTitle,
			CareerStartDate:  timeline.FormatDate(&cs.CareerStartDate),
			CareerEndDate:    timeline.FormatDate(cs.CareerEndDate),
		}
	}
	return resp
}

func toPersonResponses(people []model.Person) []dto.PersonResponse {
	result := make([]dto.PersonResponse, 0, len(people))
	for i := range people {
		result = append(result, *toPersonResponse(&people[i]))
	}
	return result
}
