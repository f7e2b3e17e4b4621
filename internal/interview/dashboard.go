package interview

import (
	"context"
	"fmt"
	"time"

	"recruit-agent-go/internal/storage"
	"recruit-agent-go/internal/workflow"
)

const notificationLimit = 10

// Notification 仪表盘上的一条面试动态
type Notification struct {
	ID      uint   `json:"id"`
	Content string `json:"content"`
	Time    string `json:"time"`
	Type    string `json:"type"`
	JobID   *uint  `json:"job_id,omitempty"`
}

// Notifications 返回角色相关的面试动态：
// 管理员看全局最近动态，面试官看自己的待办面试安排。
func (s *Service) Notifications(ctx context.Context, userID uint) ([]Notification, error) {
	user, err := s.repo.GetUserByID(ctx, userID)
	if err != nil {
		return nil, fmt.Errorf("用户 %d 不存在: %w", userID, err)
	}

	if workflow.Role(user.Role) == workflow.RoleAdmin {
		return s.adminNotifications(ctx)
	}
	return s.interviewerNotifications(ctx, userID)
}

func (s *Service) adminNotifications(ctx context.Context) ([]Notification, error) {
	interviews, _, err := s.repo.ListInterviews(ctx, storage.InterviewFilter{Limit: notificationLimit})
	if err != nil {
		return nil, fmt.Errorf("查询最近面试动态失败: %w", err)
	}

	notifications := make([]Notification, 0, len(interviews))
	for _, iv := range interviews {
		candidateName := "未知候选人"
		if iv.Candidate != nil {
			candidateName = iv.Candidate.Name
		}
		interviewerName := "未知面试官"
		if iv.Interviewer != nil {
			interviewerName = iv.Interviewer.Name
		}
		jobTitle := "未知岗位"
		if iv.Job != nil {
			jobTitle = iv.Job.Title
		}

		var content, nType string
		switch workflow.Status(iv.Status) {
		case workflow.StatusCompleted:
			content = fmt.Sprintf("%s 完成了 [%s] 岗位的候选人 [%s] 的面试评价", interviewerName, jobTitle, candidateName)
			nType = "completed"
		case workflow.StatusAccepted, workflow.StatusPreparing:
			content = fmt.Sprintf("%s 接受了 [%s] 岗位关于 [%s] 的面试邀请", interviewerName, jobTitle, candidateName)
			nType = "accepted"
		case workflow.StatusInProgress, workflow.StatusPendingDecision:
			content = fmt.Sprintf("%s 正在进行 [%s] 岗位关于 [%s] 的面试", interviewerName, jobTitle, candidateName)
			nType = "scheduled"
		case workflow.StatusPending:
			content = fmt.Sprintf("新面试安排已发送给 %s ([%s] - %s)", interviewerName, jobTitle, candidateName)
			nType = "pending"
		case workflow.StatusRejected:
			content = fmt.Sprintf("%s 拒绝了 [%s] 岗位的面试邀请", interviewerName, jobTitle)
			nType = "rejected"
		default:
			continue
		}

		notifications = append(notifications, Notification{
			ID:      iv.ID,
			Content: content,
			Time:    timeAgo(iv.UpdatedAt),
			Type:    nType,
			JobID:   iv.JobID,
		})
	}
	return notifications, nil
}

func (s *Service) interviewerNotifications(ctx context.Context, userID uint) ([]Notification, error) {
	// 取面试官最近的记录再按待办状态过滤，避免按状态逐个查询
	interviews, _, err := s.repo.ListInterviews(ctx, storage.InterviewFilter{
		InterviewerID: userID,
		Limit:         notificationLimit * 5,
	})
	if err != nil {
		return nil, fmt.Errorf("查询面试安排失败: %w", err)
	}

	notifications := make([]Notification, 0, notificationLimit)
	for _, iv := range interviews {
		switch workflow.Status(iv.Status) {
		case workflow.StatusPending, workflow.StatusAccepted, workflow.StatusPreparing:
		default:
			continue
		}

		candidateName := "未知候选人"
		if iv.Candidate != nil {
			candidateName = iv.Candidate.Name
		}
		jobTitle := "未知岗位"
		if iv.Job != nil {
			jobTitle = iv.Job.Title
		}

		timeStr := "时间待定"
		if iv.InterviewTime != nil {
			timeStr = iv.InterviewTime.Format("01-02 15:04")
		}

		notifications = append(notifications, Notification{
			ID:      iv.ID,
			Content: fmt.Sprintf("为你安排了关于 [%s] 岗位的候选人 [%s] 的面试", jobTitle, candidateName),
			Time:    timeStr,
			Type:    "scheduled",
			JobID:   iv.JobID,
		})
		if len(notifications) >= notificationLimit {
			break
		}
	}
	return notifications, nil
}

// timeAgo 把时间渲染为"N天前/N小时前/N分钟前/刚刚"
func timeAgo(t time.Time) string {
	if t.IsZero() {
		return "未知时间"
	}
	diff := time.Since(t)
	switch {
	case diff >= 24*time.Hour:
		return fmt.Sprintf("%d天前", int(diff.Hours())/24)
	case diff >= time.Hour:
		return fmt.Sprintf("%d小时前", int(diff.Hours()))
	case diff >= time.Minute:
		return fmt.Sprintf("%d分钟前", int(diff.Minutes()))
	default:
		return "刚刚"
	}
}
