package dispatcher

import (
	"context"
	"sync"

	"github.com/paiban/crewdispatch/pkg/model"
)

// scoreTask 单个技师的评分任务
type scoreTask struct {
	index int
	tech  model.Technician
}

// indexedScore 带下标的评分结果
type indexedScore struct {
	index  int
	result model.ScoreResult
}

// scoreAll 并行计算所有技师对同一工单的分数，结果顺序与 techs 一致
// 工单之间仍按顺序处理，只有同一工单内的技师评分并行
func (e *Engine) scoreAll(
	ctx context.Context,
	techs []model.Technician,
	job model.Job,
	working []model.Job,
	date string,
	timeOff []model.TimeOffEntry,
) []model.ScoreResult {
	if len(techs) == 0 {
		return nil
	}

	workers := e.workers
	if workers > len(techs) {
		workers = len(techs)
	}

	taskChan := make(chan scoreTask, len(techs))
	resultChan := make(chan indexedScore, len(techs))

	// 启动工作协程
	var wg sync.WaitGroup
	for i := 0; i < workers; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for task := range taskChan {
				res := e.scorer.ScoreTechForJob(ctx, task.tech, job, working, date, timeOff)
				resultChan <- indexedScore{index: task.index, result: res}
			}
		}()
	}

	// 发送任务
	for i, tech := range techs {
		taskChan <- scoreTask{index: i, tech: tech}
	}
	close(taskChan)

	// 等待完成
	go func() {
		wg.Wait()
		close(resultChan)
	}()

	// 收集结果
	results := make([]model.ScoreResult, len(techs))
	for r := range resultChan {
		results[r.index] = r.result
	}
	return results
}
