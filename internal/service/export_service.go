package service

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"time"

	ics "github.com/arran4/golang-ical"
	"github.com/xuri/excelize/v2"
	"go.uber.org/zap"
	"gorm.io/gorm"

	"stargate/backend/internal/model"
	"stargate/backend/internal/repository"
	"stargate/backend/internal/timeline"
)

// ── 导出模块业务错误 ──

var ErrExportGenerateFail = errors.New("生成导出文件失败")

// ICS 扩展属性：标记仍在进行中的值勤
const icsPropertyOpen = ics.ComponentProperty("X-STARGATE-OPEN")

// ExportService 导出业务接口
//
//   - ExportDuties 全部值勤记录导出为 Excel (.xlsx)，每条值勤一行
//   - PersonCalendar 单人时间线导出为 iCalendar，每条值勤一个全天事件
//   - 内容以 bytes.Buffer 返回，由 Handler 层设置响应头后写入
type ExportService interface {
	ExportDuties(ctx context.Context) (*bytes.Buffer, string, error)
	PersonCalendar(ctx context.Context, name string) (*bytes.Buffer, string, error)
}

type exportService struct {
	repo   *repository.Repository
	logger *zap.Logger
	now    func() time.Time
}

// NewExportService 创建 ExportService 实例
func NewExportService(repo *repository.Repository, logger *zap.Logger) ExportService {
	return &exportService{repo: repo, logger: logger, now: time.Now}
}

// ═══════════════════════════════════════════════════════════
// ExportDuties 导出值勤记录为 Excel
// ═══════════════════════════════════════════════════════════
//
// 输出格式：
//   - Sheet "值勤记录"
//   - 列：姓名 / 军衔 / 职务 / 类型 / 开始日期 / 结束日期
//   - 进行中的值勤结束日期留空

var dutySheetHeaders = []string{"姓名", "军衔", "职务", "类型", "开始日期", "结束日期"}

func (s *exportService) ExportDuties(ctx context.Context) (*bytes.Buffer, string, error) {
	duties, _, err := s.repo.Duty.ListWithPerson(ctx, repository.DutyFilter{})
	if err != nil {
		s.logger.Error("查询值勤记录失败", zap.Error(err))
		return nil, "", err
	}

	f := excelize.NewFile()
	defer f.Close()

	sheetName := "值勤记录"
	idx, _ := f.NewSheet(sheetName)
	f.SetActiveSheet(idx)
	// 删除默认 Sheet1
	f.DeleteSheet("Sheet1")

	f.SetColWidth(sheetName, "A", "A", 24)
	f.SetColWidth(sheetName, "B", "C", 18)
	f.SetColWidth(sheetName, "D", "F", 14)

	headerStyle, _ := f.NewStyle(&excelize.Style{
		Font:      &excelize.Font{Bold: true, Size: 11},
		Fill:      excelize.Fill{Type: "pattern", Color: []string{"#4472C4"}, Pattern: 1},
		Alignment: &excelize.Alignment{Horizontal: "center", Vertical: "center"},
	})

	// 表头
	for i, h := range dutySheetHeaders {
		f.SetCellValue(sheetName, cell(colName(i), 1), h)
	}
	f.SetCellStyle(sheetName, "A1", cell(colName(len(dutySheetHeaders)-1), 1), headerStyle)
	f.SetPanes(sheetName, &excelize.Panes{Freeze: true, YSplit: 1, TopLeftCell: "A2", ActivePane: "bottomLeft"})

	// 数据行
	row := 2
	for i := range duties {
		d := &duties[i]
		name := ""
		if d.Person != nil {
			name = d.Person.Name
		}
		f.SetCellValue(sheetName, cell("A", row), name)
		f.SetCellValue(sheetName, cell("B", row), d.Rank)
		f.SetCellValue(sheetName, cell("C", row), d.DutyTitle)
		f.SetCellValue(sheetName, cell("D", row), outcomeLabel(d.Outcome))
		f.SetCellValue(sheetName, cell("E", row), timeline.FormatDate(&d.DutyStartDate))
		f.SetCellValue(sheetName, cell("F", row), timeline.FormatDate(d.DutyEndDate))
		row++
	}

	buf := new(bytes.Buffer)
	if err := f.Write(buf); err != nil {
		s.logger.Error("写入 Excel 失败", zap.Error(err))
		return nil, "", ErrExportGenerateFail
	}

	filename := fmt.Sprintf("duties_%s.xlsx", s.now().Format("20060102"))
	return buf, filename, nil
}

// ═══════════════════════════════════════════════════════════
// PersonCalendar 单人值勤日历
// ═══════════════════════════════════════════════════════════
//
// 全天事件的 DTEND 为开区间，因此取结束日期的后一天；
// 进行中的值勤不写 DTEND，并带 X-STARGATE-OPEN:TRUE

func (s *exportService) PersonCalendar(ctx context.Context, name string) (*bytes.Buffer, string, error) {
	name, err := normalizeName(name)
	if err != nil {
		return nil, "", err
	}
	person, err := s.repo.Person.GetByName(ctx, name)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, "", ErrPersonNotFound
		}
		s.logger.Error("查询人员失败", zap.String("name", name), zap.Error(err))
		return nil, "", err
	}

	duties, err := s.repo.Duty.ListByPerson(ctx, person.PersonID)
	if err != nil {
		s.logger.Error("查询人员值勤失败", zap.String("person_id", person.PersonID), zap.Error(err))
		return nil, "", err
	}

	cal := ics.NewCalendar()
	cal.SetMethod(ics.MethodPublish)
	cal.SetProductId("-//stargate//duty timeline//EN")
	cal.SetXWRCalName(person.Name)

	stamp := s.now().UTC()
	for i := range duties {
		d := &duties[i]
		evt := cal.AddEvent(d.DutyID + "@stargate")
		evt.SetDtStampTime(stamp)
		evt.SetSummary(fmt.Sprintf("%s (%s)", d.DutyTitle, d.Rank))
		evt.SetAllDayStartAt(d.DutyStartDate)
		if d.DutyEndDate != nil {
			evt.SetAllDayEndAt(d.DutyEndDate.AddDate(0, 0, 1))
		} else {
			evt.SetProperty(icsPropertyOpen, "TRUE")
		}
		if d.Outcome == model.DutyOutcomeRetirement {
			evt.SetDescription("退役")
		}
	}

	buf := bytes.NewBufferString(cal.Serialize())
	filename := fmt.Sprintf("duties_%s.ics", person.PersonID)
	return buf, filename, nil
}

// ── 辅助函数 ──

func outcomeLabel(o model.DutyOutcome) string {
	if o == model.DutyOutcomeRetirement {
		return "退役"
	}
	return "常规"
}

func colName(idx int) string {
	name, _ := excelize.ColumnNumberToName(idx + 1)
	return name
}

func cell(col string, row int) string {
	return fmt.Sprintf("%s%d", col, row)
}
