package service

import (
	"context"
	"fmt"
	"time"

	"github.com/rohan-singh987/zimedash/internal/entity"
	"github.com/rohan-singh987/zimedash/internal/repository"
	"github.com/xuri/excelize/v2"
)

// ExportService 导出服务
type ExportService struct {
	taskRepo    *repository.TaskRepository
	projectRepo *repository.ProjectRepository
}

// NewExportService 创建导出服务
func NewExportService(taskRepo *repository.TaskRepository, projectRepo *repository.ProjectRepository) *ExportService {
	return &ExportService{
		taskRepo:    taskRepo,
		projectRepo: projectRepo,
	}
}

var taskExportHeaders = []string{
	"Title", "Status", "Priority", "Assignee", "Creator",
	"Due Date", "Estimated Hours", "Actual Hours", "Tags", "Created At",
}

// ExportProjectTasks 导出项目任务为xlsx
func (s *ExportService) ExportProjectTasks(ctx context.Context, projectID string) (*excelize.File, string, error) {
	project, err := s.projectRepo.FindByID(ctx, projectID)
	if err != nil {
		return nil, "", err
	}

	tasks, err := s.taskRepo.ListAllByProject(ctx, projectID)
	if err != nil {
		return nil, "", fmt.Errorf("list tasks: %w", err)
	}

	f := excelize.NewFile()
	sheet := "Tasks"
	f.SetSheetName("Sheet1", sheet)

	// 表头样式: 加粗
	boldStyle, _ := f.NewStyle(&excelize.Style{
		Font: &excelize.Font{Bold: true, Size: 11},
		Fill: excelize.Fill{Type: "pattern", Pattern: 1, Color: []string{"#D9E1F2"}},
		Border: []excelize.Border{
			{Type: "bottom", Color: "000000", Style: 1},
		},
	})

	// 写入表头
	for i, h := range taskExportHeaders {
		col, _ := excelize.ColumnNumberToName(i + 1)
		cell := col + "1"
		f.SetCellValue(sheet, cell, h)
		f.SetCellStyle(sheet, cell, cell, boldStyle)
	}

	// 写入数据行
	var doneCount int
	for rowIdx, task := range tasks {
		row := rowIdx + 2
		f.SetCellValue(sheet, fmt.Sprintf("A%d", row), task.Title)
		f.SetCellValue(sheet, fmt.Sprintf("B%d", row), task.Status)
		f.SetCellValue(sheet, fmt.Sprintf("C%d", row), task.Priority)
		if task.AssigneeID != nil {
			f.SetCellValue(sheet, fmt.Sprintf("D%d", row), *task.AssigneeID)
		}
		f.SetCellValue(sheet, fmt.Sprintf("E%d", row), task.CreatorID)
		if task.DueDate != nil {
			f.SetCellValue(sheet, fmt.Sprintf("F%d", row), task.DueDate.Format("2006-01-02"))
		}
		if task.EstimatedHours != nil {
			f.SetCellValue(sheet, fmt.Sprintf("G%d", row), *task.EstimatedHours)
		}
		if task.ActualHours != nil {
			f.SetCellValue(sheet, fmt.Sprintf("H%d", row), *task.ActualHours)
		}
		f.SetCellValue(sheet, fmt.Sprintf("I%d", row), joinTags(task.Tags))
		f.SetCellValue(sheet, fmt.Sprintf("J%d", row), task.CreatedAt.Format("2006-01-02 15:04"))
		if task.Status == entity.TaskStatusDone {
			doneCount++
		}
	}

	// 底部汇总行
	summaryRow := len(tasks) + 2
	summaryStyle, _ := f.NewStyle(&excelize.Style{
		Font: &excelize.Font{Bold: true},
	})
	f.SetCellValue(sheet, fmt.Sprintf("A%d", summaryRow), "Summary")
	f.SetCellValue(sheet, fmt.Sprintf("B%d", summaryRow), fmt.Sprintf("%d tasks, %d done", len(tasks), doneCount))
	f.SetCellStyle(sheet, fmt.Sprintf("A%d", summaryRow), fmt.Sprintf("J%d", summaryRow), summaryStyle)

	colWidths := []float64{30, 10, 10, 32, 32, 12, 14, 12, 24, 18}
	for i, w := range colWidths {
		col, _ := excelize.ColumnNumberToName(i + 1)
		f.SetColWidth(sheet, col, col, w)
	}

	filename := fmt.Sprintf("Tasks_%s_%s.xlsx", project.Name, time.Now().Format("20060102"))
	return f, filename, nil
}

func joinTags(tags entity.StringArray) string {
	out := ""
	for i, t := range tags {
		if i > 0 {
			out += ", "
		}
		out += t
	}
	return out
}
