package telegram

import (
	"context"
	"fmt"
)

// FitnessName FitnessBuddy 脚本名
const FitnessName = "fitness"

// DefaultPhotoReward 每张活动截图奖励的 $FIT
const DefaultPhotoReward = 10

// Fitness 健身打卡脚本，奖励记到 Ledger
type Fitness struct {
	ledger Ledger
	reward int
}

func NewFitness(ledger Ledger, reward int) *Fitness {
	if ledger == nil {
		ledger = NewMemoryLedger()
	}
	if reward <= 0 {
		reward = DefaultPhotoReward
	}
	return &Fitness{ledger: ledger, reward: reward}
}

func (f *Fitness) Name() string { return FitnessName }

var (
	shareResults = row(btn("📸 Share Results", "upload"))
	otherWorkout = row(btn("🔄 Different Workout", "workout_start"))
)

func (f *Fitness) Trigger(ctx context.Context, chatID int64, trigger string) ([]Reply, error) {
	switch trigger {
	case TriggerStart:
		return []Reply{
			say("🏋️‍♂️ Welcome to FitnessBuddy AI! I'm here to help you track your fitness journey and earn rewards."),
			say("Ready to get started? Upload activities to earn $FIT tokens or get a personalized workout!",
				row(btn("📸 Upload Activity", "upload")),
				row(btn("💪 Get Workout", "workout_start")),
				row(btn("💰 Check Balance", "balance")),
			),
		}, nil

	case "upload":
		return []Reply{
			say("Perfect! Send me a screenshot of your Apple Fitness activity rings."),
			say("Tip: Make sure all three rings are visible in the screenshot! 🎯"),
		}, nil

	case "photo_uploaded":
		if _, err := f.ledger.Credit(ctx, chatID, f.reward); err != nil {
			return nil, fmt.Errorf("credit reward: %w", err)
		}
		return []Reply{
			say("🔍 Analyzing your activity rings..."),
			say("✨ Great work! I can see you've closed your rings."),
			say(fmt.Sprintf("🎉 You've earned %d $FIT tokens for this achievement!", f.reward),
				row(btn("📸 Upload Another", "upload")),
				row(btn("💰 View Balance", "balance")),
			),
		}, nil

	case "balance":
		st, err := f.ledger.Stats(ctx, chatID)
		if err != nil {
			return nil, fmt.Errorf("load balance: %w", err)
		}
		return []Reply{
			say(fmt.Sprintf("💰 Your current balance: %d $FIT", st.Balance)),
			say("Keep closing those rings to earn more tokens! What would you like to do next?",
				row(btn("📸 Upload Activity", "upload")),
				row(btn("📊 View Stats", "stats")),
			),
		}, nil

	case "stats":
		st, err := f.ledger.Stats(ctx, chatID)
		if err != nil {
			return nil, fmt.Errorf("load stats: %w", err)
		}
		return []Reply{
			say(fmt.Sprintf("📊 Your Fitness Stats:\n\n"+
				"🏃‍♂️ Activities Tracked: %d\n"+
				"🎯 Rings Closed: %d\n"+
				"💰 Total $FIT Earned: %d", st.Activities, st.Activities, st.Balance)),
			say("Ready to add another achievement?",
				row(btn("📸 Upload Activity", "upload")),
				row(btn("💪 Get Workout", "workout_start")),
			),
		}, nil

	case "workout_start":
		return []Reply{
			say("💪 Let's get you a workout! What would you like to focus on today?",
				row(btn("💪 Arms", "workout_arms"), btn("🦵 Legs", "workout_legs")),
				row(btn("🏃 Core", "workout_core"), btn("🏋️ Full Body", "workout_full")),
			),
		}, nil

	case "workout_arms":
		return workout("💪 Here's your Arms workout:\n\n"+
			"1️⃣ Push-ups: 3 sets of 12-15 reps\n"+
			"2️⃣ Diamond Push-ups: 3 sets of 8-12 reps\n"+
			"3️⃣ Tricep Dips: 3 sets of 12-15 reps\n"+
			"4️⃣ Pike Push-ups: 3 sets of 8-12 reps\n"+
			"5️⃣ Arm Circles: 3 sets of 30 seconds\n\n"+
			"Rest 60-90 seconds between sets",
			"Ready to get started? Don't forget to share your workout results!"), nil

	case "workout_legs":
		return workout("🦵 Here's your Legs workout:\n\n"+
			"1️⃣ Bodyweight Squats: 4 sets of 15-20 reps\n"+
			"2️⃣ Lunges: 3 sets of 12 reps per leg\n"+
			"3️⃣ Jump Squats: 3 sets of 10-15 reps\n"+
			"4️⃣ Calf Raises: 4 sets of 20 reps\n"+
			"5️⃣ Wall Sit: 3 sets of 45 seconds\n\n"+
			"Rest 60-90 seconds between sets",
			"Ready to crush leg day? Share your results when done!"), nil

	case "workout_core":
		return workout("🏃 Here's your Core workout:\n\n"+
			"1️⃣ Planks: 3 sets of 45 seconds\n"+
			"2️⃣ Russian Twists: 3 sets of 20 reps\n"+
			"3️⃣ Mountain Climbers: 3 sets of 30 seconds\n"+
			"4️⃣ Bicycle Crunches: 3 sets of 20 reps\n"+
			"5️⃣ Leg Raises: 3 sets of 12-15 reps\n\n"+
			"Rest 45-60 seconds between sets",
			"Time to strengthen that core! Share your workout when finished!"), nil

	case "workout_full":
		return workout("🏋️ Here's your Full Body workout:\n\n"+
			"1️⃣ Burpees: 3 sets of 10 reps\n"+
			"2️⃣ Push-ups: 3 sets of 12-15 reps\n"+
			"3️⃣ Bodyweight Squats: 3 sets of 15-20 reps\n"+
			"4️⃣ Mountain Climbers: 3 sets of 30 seconds\n"+
			"5️⃣ Plank to Downward Dog: 3 sets of 10 reps\n\n"+
			"Rest 60-90 seconds between sets",
			"Let's get that full body workout in! Share your results after!"), nil
	}
	return nil, nil
}

func workout(plan, prompt string) []Reply {
	return []Reply{say(plan), say(prompt, shareResults, otherWorkout)}
}

// OnMessage /start 进入主菜单；图片视为活动截图
func (f *Fitness) OnMessage(ctx context.Context, msg *Message) ([]Reply, error) {
	var out []Reply
	if msg.Text == TriggerStart {
		replies, err := f.Trigger(ctx, msg.Chat.ID, TriggerStart)
		if err != nil {
			return nil, err
		}
		out = append(out, replies...)
	}
	if msg.HasPhoto() {
		replies, err := f.Trigger(ctx, msg.Chat.ID, "photo_uploaded")
		if err != nil {
			return out, err
		}
		out = append(out, replies...)
	}
	return out, nil
}
