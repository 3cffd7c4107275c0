package postgres

import (
	"context"
	"fmt"

	"adjacent-api/internal/domain/entity"
)

// SeedResult 演示数据
type SeedResult struct {
	Profile *entity.Profile
	Project *entity.Project
	Sources []*entity.DataSource
}

// SeedDemo 写入一个演示用户、项目和两条未处理数据源
func SeedDemo(ctx context.Context, c *Client, userID, email string) (*SeedResult, error) {
	res := &SeedResult{
		Profile: &entity.Profile{ID: userID, Email: email, FullName: "Demo User", CompanyName: "Demo Co", Role: entity.ProfileRoleManager},
	}
	err := NewTxManager(c).WithTransaction(ctx, func(ctx context.Context) error {
		if err := NewProfileRepository(c).Upsert(ctx, res.Profile); err != nil {
			return err
		}
		res.Project = entity.NewProject("demo-company", "Website relaunch", "Relaunch the marketing site", userID)
		res.Project.Metadata["context"] = "Launch planned before the end of the quarter."
		if err := NewProjectRepository(c).Create(ctx, res.Project); err != nil {
			return err
		}
		dsRepo := NewDataSourceRepository(c)
		for _, ds := range []*entity.DataSource{
			{SourceType: "document", FileName: "kickoff-notes.md", ExtractedData: map[string]any{"text": "Kickoff: design review next week, copy owned by Sam."}},
			{SourceType: "recording", SourceURL: "https://example.com/standup.mp4", ExtractedData: map[string]any{"text": "Standup: staging deploy is blocked on DNS."}},
		} {
			ds.ProjectID = res.Project.ID
			ds.ProcessingStatus = entity.ProcessingPending
			if err := dsRepo.Create(ctx, ds); err != nil {
				return err
			}
			res.Sources = append(res.Sources, ds)
		}
		return nil
	})
	if err != nil {
		return nil, fmt.Errorf("seed demo: %w", err)
	}
	return res, nil
}
