package entity

// UserState состояние пользователя в диалоге
type UserState string

const (
	StateMainMenu        UserState = "main_menu"        // В главном меню
	StateAwaitingPhoto   UserState = "awaiting_photo"   // Ожидание фото
	StateAwaitingPrompts UserState = "awaiting_prompts" // Ожидание списка промптов
	StateProcessing      UserState = "processing"       // Обработка изображения
)

// User представляет пользователя бота
type User struct {
	ID      int64     // Telegram User ID
	ChatID  int64     // Telegram Chat ID
	State   UserState // Текущее состояние пользователя
	Prompts []string  // Свои промпты; пусто: полный каскад по промптам реестра
}

// NewUser создаёт нового пользователя с начальным состоянием
func NewUser(userID, chatID int64) *User {
	return &User{
		ID:     userID,
		ChatID: chatID,
		State:  StateMainMenu,
	}
}

// SetState обновляет состояние пользователя
func (u *User) SetState(state UserState) {
	u.State = state
}

// SetPrompts заменяет промпты пользователя (с нормализацией).
func (u *User) SetPrompts(prompts []string) {
	u.Prompts = NormalizePrompts(prompts)
}
